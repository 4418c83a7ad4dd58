package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avolkov/cryptbucket/internal/cryptometa"
	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/avolkov/cryptbucket/internal/service"
)

// handleBlobWrite streams the entire request body as a fresh blob and
// finishes it in one shot.
func (s *Server) handleBlobWrite(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	bucketID, fileID, err := s.guardBlobWrite(w, r, auth)
	if err != nil {
		return
	}
	header := r.Header.Get(cryptometa.HeaderName)
	if header == "" {
		s.writeError(w, errs.Developer("CRYPTO_META_HEADER_INVALID", "Provided "+cryptometa.HeaderName+" header is invalid"))
		return
	}

	blob, writer, err := s.svc.Blobs.CreateInProgressBlob(r.Context(), bucketID, fileID, header)
	if err != nil {
		s.writeError(w, err)
		return
	}
	written, err := s.drainBody(r, writer)
	if err != nil {
		s.abortBlob(r, bucketID, fileID, blob.ID)
		s.writeError(w, err)
		return
	}
	if err := s.svc.Blobs.FinishWrite(r.Context(), bucketID, fileID, blob.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"blobId":           blob.ID.String(),
		"bytesTransferred": written,
	})
}

// handleBlobWriteQuantized writes one chunk at the given offset. blobId
// "null" starts a fresh blob; shouldEnd=true finalizes it.
func (s *Server) handleBlobWriteQuantized(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	vars := mux.Vars(r)
	offset, err := strconv.ParseInt(vars["offset"], 10, 64)
	if err != nil || offset < 0 {
		s.writeError(w, errs.Validation("Provided offset is not valid", vars["offset"]))
		return
	}
	shouldEnd, err := strconv.ParseBool(vars["shouldEnd"])
	if err != nil {
		s.writeError(w, errs.Validation("Provided shouldEnd flag is not valid", vars["shouldEnd"]))
		return
	}
	bucketID, fileID, err := s.guardBlobWrite(w, r, auth)
	if err != nil {
		return
	}
	if offset > s.svc.Blobs.MaxFileSizeBytes() {
		s.writeError(w, errs.User("BLOB_SIZE_EXCEEDS_LIMIT", "Rejected attempt to write file larger than allowed"))
		return
	}

	var blob *model.Blob
	var writer service.BlobWriter
	if vars["blobId"] == "null" {
		header := r.Header.Get(cryptometa.HeaderName)
		if header == "" {
			s.writeError(w, errs.Developer("CRYPTO_META_HEADER_INVALID", "Provided "+cryptometa.HeaderName+" header is invalid"))
			return
		}
		blob, writer, err = s.svc.Blobs.CreateInProgressBlob(r.Context(), bucketID, fileID, header)
	} else {
		var blobID uuid.UUID
		blobID, err = parseID(vars["blobId"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		blob, writer, err = s.svc.Blobs.ResumeInProgressBlob(r.Context(), bucketID, fileID, blobID, offset)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	written, err := s.drainBody(r, writer)
	if err != nil {
		s.abortBlob(r, bucketID, fileID, blob.ID)
		s.writeError(w, err)
		return
	}
	if shouldEnd {
		if err := s.svc.Blobs.FinishWrite(r.Context(), bucketID, fileID, blob.ID); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeOK(w, map[string]any{
		"blobId":           blob.ID.String(),
		"bytesTransferred": written,
	})
}

// handleBlobRead streams the newest finished blob of the file.
func (s *Server) handleBlobRead(w http.ResponseWriter, r *http.Request, auth *service.Authentication) {
	bucketID, fileID, err := parseTwoIDs(mux.Vars(r)["bucketId"], mux.Vars(r)["fileId"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.EnsureFileBelongsToBucket(r.Context(), bucketID, fileID); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermViewContent); err != nil {
		s.writeError(w, err)
		return
	}
	blob, err := s.svc.Blobs.FindLatestBlob(r.Context(), bucketID, fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reader, size, err := s.svc.Blobs.OpenBlobReader(blob.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Access-Control-Expose-Headers", cryptometa.HeaderName)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(cryptometa.HeaderName, blob.CryptoMetaHeaderContent)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already on the wire; all we can do is log.
		s.logger.Error("blob stream interrupted", zap.Error(err), zap.Stringer("blob", blob.ID))
	}
}

// guardBlobWrite parses the path ids and runs the belongs-check plus
// MANAGE_CONTENT. On failure the response is already written.
func (s *Server) guardBlobWrite(w http.ResponseWriter, r *http.Request, auth *service.Authentication) (uuid.UUID, uuid.UUID, error) {
	bucketID, fileID, err := parseTwoIDs(mux.Vars(r)["bucketId"], mux.Vars(r)["fileId"])
	if err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.EnsureFileBelongsToBucket(r.Context(), bucketID, fileID); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	if _, err := s.svc.Access.RequireBucketAuthorization(r.Context(), auth.UserID, bucketID, model.BucketPermManageContent); err != nil {
		s.writeError(w, err)
		return uuid.Nil, uuid.Nil, err
	}
	return bucketID, fileID, nil
}

// drainBody copies the request body into the blob writer and closes it.
func (s *Server) drainBody(r *http.Request, writer service.BlobWriter) (int64, error) {
	if _, err := io.Copy(writer, r.Body); err != nil {
		_ = writer.Close()
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return writer.BytesWritten(), nil
}

func (s *Server) abortBlob(r *http.Request, bucketID, fileID, blobID uuid.UUID) {
	if err := s.svc.Blobs.AbortWrite(r.Context(), bucketID, fileID, blobID); err != nil {
		s.logger.Error("abort blob", zap.Error(err), zap.Stringer("blob", blobID))
	}
}
