package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avolkov/cryptbucket/internal/errs"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	HasError bool      `json:"hasError"`
	Error    errorBody `json:"error"`
}

// writeOK sends the payload with hasError=false merged in.
func (s *Server) writeOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["hasError"] = false
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

// writeError sends the error envelope. Coded user errors pass through with
// their message; everything else is masked and logged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	body := errorBody{Code: errs.CodeOf(err)}
	var coded *errs.Error
	if errors.As(err, &coded) && coded.Kind == errs.KindUser {
		body.Message = coded.Message
		body.Details = coded.Details
	} else {
		s.logger.Error("request failed", zap.Error(err))
		body.Message = "An unexpected error occurred"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{HasError: true, Error: body}); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeGenericServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		HasError: true,
		Error:    errorBody{Code: "GENERIC_SERVER_ERROR", Message: "An unexpected error occurred"},
	})
}

// decode parses the JSON body into dst and runs struct validation.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Validation("Request body is not valid JSON", err.Error())
	}
	if err := s.validate.Struct(dst); err != nil {
		return errs.Validation("Request validation failed", validationDetails(err))
	}
	return nil
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	ok := false
	if verrs, ok = err.(validator.ValidationErrors); !ok {
		return err.Error()
	}
	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return details
}

// parseID reads a uuid out of a request field or path variable value.
func parseID(value string) (uuid.UUID, error) {
	id, err := uuid.FromString(value)
	if err != nil {
		return uuid.Nil, errs.Validation("Provided id is not valid", value)
	}
	return id, nil
}

// pathID reads a uuid path variable.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return parseID(mux.Vars(r)[name])
}

// clientIP extracts the peer address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
