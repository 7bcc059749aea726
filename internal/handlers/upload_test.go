package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmodel/portal/internal/handlers"
	"github.com/dmodel/portal/internal/intake"
	"github.com/dmodel/portal/internal/storage"
)

type fakeSubmitter struct {
	productForm *intake.ProductForm
	modelForm   *intake.ModelForm
	productErr  error
	modelErr    error
}

func (f *fakeSubmitter) SubmitProduct(ctx context.Context, form *intake.ProductForm) (*intake.ProductReceipt, error) {
	f.productForm = form
	if f.productErr != nil {
		return nil, f.productErr
	}
	return &intake.ProductReceipt{Token: "123456", ImageURL: "http://blobs.local/b/products/123456-1-x.jpg"}, nil
}

func (f *fakeSubmitter) SubmitModel(ctx context.Context, form *intake.ModelForm) (*intake.ModelReceipt, error) {
	f.modelForm = form
	if f.modelErr != nil {
		return nil, f.modelErr
	}
	return &intake.ModelReceipt{ModelURL: "http://blobs.local/b/models/1-x.glb"}, nil
}

func productRequest(t *testing.T, fields map[string]string, imageName string, imageBytes []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("productImage", imageName)
		require.NoError(t, err)
		_, err = part.Write(imageBytes)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestProductUpload_Success(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := handlers.NewProductUploadHandler(submitter)

	req := productRequest(t, map[string]string{
		"productName":   "Lamp",
		"category":      "furniture",
		"sellerName":    "Ada",
		"sellerContact": "996557628",
		"sellerEmail":   "a@b.com",
	}, "lamp.jpg", []byte("jpeg-bytes"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "123456", resp["token"])
	assert.NotEmpty(t, resp["imageUrl"])
	assert.Equal(t, "Product uploaded successfully", resp["message"])

	require.NotNil(t, submitter.productForm)
	assert.Equal(t, "Lamp", submitter.productForm.ProductName)
	require.NotNil(t, submitter.productForm.Image)
	assert.Equal(t, "lamp.jpg", submitter.productForm.Image.Name)
	assert.Equal(t, []byte("jpeg-bytes"), submitter.productForm.Image.Content)
}

func TestProductUpload_MissingImage(t *testing.T) {
	submitter := &fakeSubmitter{
		productErr: &intake.ValidationError{Field: "productImage", Message: "Product image is required"},
	}
	handler := handlers.NewProductUploadHandler(submitter)

	req := productRequest(t, map[string]string{"productName": "Lamp"}, "", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Product image is required", resp["error"])

	// The handler passes a nil image through; validation decides
	assert.Nil(t, submitter.productForm.Image)
}

func TestProductUpload_StorageFailure(t *testing.T) {
	submitter := &fakeSubmitter{
		productErr: &storage.StorageError{Code: "QuotaExceeded", Message: "quota exceeded"},
	}
	handler := handlers.NewProductUploadHandler(submitter)

	req := productRequest(t, map[string]string{"productName": "Lamp"}, "lamp.jpg", []byte("x"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to upload product", resp["error"])
	assert.Contains(t, resp["details"], "QuotaExceeded")
}

func TestProductUpload_MetadataFailure(t *testing.T) {
	submitter := &fakeSubmitter{
		productErr: &intake.MetadataError{
			Key: "products/123456-1-x.jpg",
			URL: "http://blobs.local/b/products/123456-1-x.jpg",
			Err: errors.New("db down"),
		},
	}
	handler := handlers.NewProductUploadHandler(submitter)

	req := productRequest(t, map[string]string{"productName": "Lamp"}, "lamp.jpg", []byte("x"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["details"], "metadata insert failed")
}

func TestModelUpload_Success(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := handlers.NewModelUploadHandler(submitter)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("sellerEmail", "a@b.com"))
	part, err := writer.CreateFormFile("modelFile", "chair.glb")
	require.NoError(t, err)
	_, err = part.Write([]byte("glb-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-model", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["modelUrl"])
	assert.Equal(t, "Model uploaded successfully", resp["message"])

	require.NotNil(t, submitter.modelForm)
	assert.Equal(t, "a@b.com", submitter.modelForm.SellerEmail)
	require.NotNil(t, submitter.modelForm.File)
	assert.Equal(t, "chair.glb", submitter.modelForm.File.Name)
}

func TestModelUpload_MissingEmail(t *testing.T) {
	submitter := &fakeSubmitter{
		modelErr: &intake.ValidationError{Field: "sellerEmail", Message: "Seller email is required"},
	}
	handler := handlers.NewModelUploadHandler(submitter)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("modelFile", "chair.glb")
	require.NoError(t, err)
	_, err = part.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-model", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Seller email is required", resp["error"])
}
