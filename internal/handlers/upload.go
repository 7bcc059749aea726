package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmodel/portal/internal/intake"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 32 << 20

// Submitter is the intake surface the upload handlers depend on.
type Submitter interface {
	SubmitProduct(ctx context.Context, form *intake.ProductForm) (*intake.ProductReceipt, error)
	SubmitModel(ctx context.Context, form *intake.ModelForm) (*intake.ModelReceipt, error)
}

// ProductUploadHandler handles product submissions
type ProductUploadHandler struct {
	intake Submitter
}

// NewProductUploadHandler creates a new product upload handler
func NewProductUploadHandler(intake Submitter) *ProductUploadHandler {
	return &ProductUploadHandler{intake: intake}
}

// ServeHTTP handles POST /upload
func (h *ProductUploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "upload_product",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	form := &intake.ProductForm{
		ProductName:   r.FormValue("productName"),
		Category:      r.FormValue("category"),
		SellerName:    r.FormValue("sellerName"),
		SellerContact: r.FormValue("sellerContact"),
		SellerEmail:   r.FormValue("sellerEmail"),
		Image:         formFile(r, "productImage"),
	}

	receipt, err := h.intake.SubmitProduct(ctx, form)
	if err != nil {
		span.RecordError(err)
		respondSubmitError(w, err, "Failed to upload product")
		return
	}

	span.SetAttributes(attribute.String("token", receipt.Token))
	log.Printf("Product submission registered: token=%s seller=%s", receipt.Token, form.SellerEmail)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"token":    receipt.Token,
		"imageUrl": receipt.ImageURL,
		"message":  "Product uploaded successfully",
	})
}

// ModelUploadHandler handles 3D model submissions
type ModelUploadHandler struct {
	intake Submitter
}

// NewModelUploadHandler creates a new model upload handler
func NewModelUploadHandler(intake Submitter) *ModelUploadHandler {
	return &ModelUploadHandler{intake: intake}
}

// ServeHTTP handles POST /upload-model
func (h *ModelUploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "upload_model",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	form := &intake.ModelForm{
		SellerEmail: r.FormValue("sellerEmail"),
		File:        formFile(r, "modelFile"),
	}

	receipt, err := h.intake.SubmitModel(ctx, form)
	if err != nil {
		span.RecordError(err)
		respondSubmitError(w, err, "Failed to upload model")
		return
	}

	log.Printf("Model submission registered: seller=%s", form.SellerEmail)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"modelUrl": receipt.ModelURL,
		"message":  "Model uploaded successfully",
	})
}

// formFile reads one uploaded file fully into memory. A missing or
// unreadable part yields nil and is caught by intake validation.
func formFile(r *http.Request, field string) *intake.FileUpload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Warning: failed to read %s upload: %v", field, err)
		return nil
	}

	return &intake.FileUpload{
		Name:        header.Filename,
		Content:     content,
		ContentType: header.Header.Get("Content-Type"),
	}
}

// respondSubmitError maps intake errors onto the wire: validation failures
// are 400s naming the field condition, everything else is a 500 with
// diagnostic detail.
func respondSubmitError(w http.ResponseWriter, err error, message string) {
	var vErr *intake.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Message)
		return
	}
	writeErrorWithDetails(w, http.StatusInternalServerError, message, err.Error())
}
