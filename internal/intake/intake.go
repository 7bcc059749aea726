// Package intake orchestrates submission registration: validate the form,
// store the blob, persist the metadata record, signal the change feed.
package intake

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmodel/portal/internal/blobkey"
	"github.com/dmodel/portal/internal/models"
	"github.com/dmodel/portal/internal/token"
)

var tracer = otel.Tracer("portal-intake")

// BlobStore stores binary content and resolves it to a public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, content []byte, contentType string, userMeta map[string]string) (string, error)
}

// MetadataStore persists submission records.
type MetadataStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	CreateModel(ctx context.Context, m *models.Model) error
}

// ChangeFeed signals watchers after a successful write.
type ChangeFeed interface {
	Publish(ctx context.Context, collection string) error
}

// Reconciler is notified when a blob was stored but its metadata record
// could not be written. The blob is not rolled back here; a reconciler may
// clean up or re-register it out of band.
type Reconciler interface {
	OrphanedBlob(ctx context.Context, key, url string)
}

// FileUpload carries one uploaded file out of a multipart form.
type FileUpload struct {
	Name        string
	Content     []byte
	ContentType string
}

// ProductForm is the input to SubmitProduct.
type ProductForm struct {
	ProductName   string
	Category      string
	SellerName    string
	SellerContact string
	SellerEmail   string
	Image         *FileUpload
}

// ModelForm is the input to SubmitModel.
type ModelForm struct {
	SellerEmail string
	File        *FileUpload
}

// ProductReceipt is returned to the caller after a full product submission.
type ProductReceipt struct {
	Token    string
	ImageURL string
}

// ModelReceipt is returned to the caller after a full model submission.
type ModelReceipt struct {
	ModelURL string
}

// ValidationError reports a missing required field. It names the first
// failing check only.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MetadataError reports the half-complete state where the blob write
// succeeded but the metadata insert did not. The stored object is not
// removed; Key and URL identify the orphan.
type MetadataError struct {
	Key string
	URL string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("blob stored at %s but metadata insert failed: %v", e.Key, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// Service handles product and model submissions.
type Service struct {
	blobs      BlobStore
	meta       MetadataStore
	feed       ChangeFeed
	reconciler Reconciler

	now      func() time.Time
	newToken func() string
}

// NewService creates an intake service. reconciler may be nil.
func NewService(blobs BlobStore, meta MetadataStore, feed ChangeFeed, reconciler Reconciler) *Service {
	return &Service{
		blobs:      blobs,
		meta:       meta,
		feed:       feed,
		reconciler: reconciler,
		now:        time.Now,
		newToken:   token.Generate,
	}
}

// SubmitProduct registers a product submission: token, image blob, metadata
// record. The blob write and the record insert are sequenced, not atomic; a
// repository failure after the blob write returns a *MetadataError.
func (s *Service) SubmitProduct(ctx context.Context, form *ProductForm) (*ProductReceipt, error) {
	ctx, span := tracer.Start(ctx, "submit_product")
	defer span.End()

	if err := validateProductForm(form); err != nil {
		span.RecordError(err)
		return nil, err
	}

	tok := s.newToken()
	span.SetAttributes(attribute.String("token", tok))

	key := blobkey.Product(tok, s.now(), form.Image.Name)
	userMeta := map[string]string{
		"token":        tok,
		"seller-email": form.SellerEmail,
		"sha256":       blobkey.ContentHash(form.Image.Content),
	}

	url, err := s.blobs.Upload(ctx, key, form.Image.Content, form.Image.ContentType, userMeta)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	product := &models.Product{
		Token:         tok,
		ProductName:   form.ProductName,
		Category:      form.Category,
		SellerName:    form.SellerName,
		SellerContact: form.SellerContact,
		SellerEmail:   form.SellerEmail,
		ImageURL:      url,
		Status:        models.StatusPending,
	}

	if err := s.meta.CreateProduct(ctx, product); err != nil {
		span.RecordError(err)
		if s.reconciler != nil {
			s.reconciler.OrphanedBlob(ctx, key, url)
		}
		return nil, &MetadataError{Key: key, URL: url, Err: err}
	}

	s.publish(ctx, models.CollectionProducts)

	return &ProductReceipt{Token: tok, ImageURL: url}, nil
}

// SubmitModel registers a 3D model submission. No token is issued.
func (s *Service) SubmitModel(ctx context.Context, form *ModelForm) (*ModelReceipt, error) {
	ctx, span := tracer.Start(ctx, "submit_model")
	defer span.End()

	if err := validateModelForm(form); err != nil {
		span.RecordError(err)
		return nil, err
	}

	ts := s.now()
	fileName := blobkey.ModelFileName(ts, form.File.Name)
	key := blobkey.Model(ts, form.File.Name)
	userMeta := map[string]string{
		"seller-email": form.SellerEmail,
		"sha256":       blobkey.ContentHash(form.File.Content),
	}

	url, err := s.blobs.Upload(ctx, key, form.File.Content, form.File.ContentType, userMeta)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	model := &models.Model{
		SellerEmail:  form.SellerEmail,
		ModelURL:     url,
		FileName:     fileName,
		OriginalName: form.File.Name,
		FileSize:     int64(len(form.File.Content)),
		Status:       models.StatusPending,
	}

	if err := s.meta.CreateModel(ctx, model); err != nil {
		span.RecordError(err)
		if s.reconciler != nil {
			s.reconciler.OrphanedBlob(ctx, key, url)
		}
		return nil, &MetadataError{Key: key, URL: url, Err: err}
	}

	s.publish(ctx, models.CollectionModels)

	return &ModelReceipt{ModelURL: url}, nil
}

// publish failures are logged, not surfaced: the record is durable and
// watchers recover on their next signal or initial query.
func (s *Service) publish(ctx context.Context, collection string) {
	if err := s.feed.Publish(ctx, collection); err != nil {
		log.Printf("Warning: failed to publish %s change: %v", collection, err)
	}
}

// Validation checks run in a fixed order; the image check comes first.
func validateProductForm(form *ProductForm) error {
	if form.Image == nil || len(form.Image.Content) == 0 {
		return &ValidationError{Field: "productImage", Message: "Product image is required"}
	}
	if strings.TrimSpace(form.ProductName) == "" {
		return &ValidationError{Field: "productName", Message: "Product name is required"}
	}
	if strings.TrimSpace(form.Category) == "" {
		return &ValidationError{Field: "category", Message: "Category is required"}
	}
	if strings.TrimSpace(form.SellerName) == "" {
		return &ValidationError{Field: "sellerName", Message: "Seller name is required"}
	}
	if strings.TrimSpace(form.SellerContact) == "" {
		return &ValidationError{Field: "sellerContact", Message: "Seller contact is required"}
	}
	if strings.TrimSpace(form.SellerEmail) == "" {
		return &ValidationError{Field: "sellerEmail", Message: "Seller email is required"}
	}
	return nil
}

// The file check precedes the email check.
func validateModelForm(form *ModelForm) error {
	if form.File == nil || len(form.File.Content) == 0 {
		return &ValidationError{Field: "modelFile", Message: "Model file is required"}
	}
	if strings.TrimSpace(form.SellerEmail) == "" {
		return &ValidationError{Field: "sellerEmail", Message: "Seller email is required"}
	}
	return nil
}
