package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/dto"
	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/internal/models"
	appErrors "github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/errors"
)

func quotaRequest() *models.UploadRequest {
	return &models.UploadRequest{
		AllowedDocTypes: []string{"invoice", "quote"},
		MaxFiles:        2,
		MaxTotalBytes:   1000000,
		Status:          models.UploadRequestPending,
	}
}

func TestQuotaEnforcerCheck(t *testing.T) {
	q := NewQuotaEnforcer(600000, nil)
	stored := models.UploadFile{SizeBytes: 400000, Status: models.UploadFileStored}
	failed := models.UploadFile{SizeBytes: 900000, Status: models.UploadFileFailed}

	cases := []struct {
		name     string
		existing []models.UploadFile
		meta     dto.FileMeta
		want     *appErrors.Error
	}{
		{"accepts", nil, dto.FileMeta{DocType: "invoice", FileName: "a.pdf", MimeType: "application/pdf", SizeBytes: 400000}, nil},
		{"mime parameters ignored", nil, dto.FileMeta{DocType: "invoice", FileName: "a.pdf", MimeType: "Application/PDF; charset=binary", SizeBytes: 1}, nil},
		{"doc type", nil, dto.FileMeta{DocType: "contract", FileName: "a.pdf", MimeType: "application/pdf", SizeBytes: 1}, appErrors.ErrDocTypeNotAllowed},
		{"mime", nil, dto.FileMeta{DocType: "invoice", FileName: "a.exe", MimeType: "application/x-msdownload", SizeBytes: 1}, appErrors.ErrMimeNotAllowed},
		{"per file ceiling", nil, dto.FileMeta{DocType: "invoice", FileName: "a.pdf", MimeType: "application/pdf", SizeBytes: 600001}, appErrors.ErrFileTooLarge},
		{"total size", []models.UploadFile{stored}, dto.FileMeta{DocType: "quote", FileName: "b.pdf", MimeType: "application/pdf", SizeBytes: 600000}, appErrors.ErrTotalSizeExceeded},
		{"failed files free quota", []models.UploadFile{failed, failed}, dto.FileMeta{DocType: "quote", FileName: "b.pdf", MimeType: "application/pdf", SizeBytes: 500000}, nil},
		{"file count", []models.UploadFile{stored, {SizeBytes: 1, Status: models.UploadFileQueued}}, dto.FileMeta{DocType: "quote", FileName: "c.pdf", MimeType: "application/pdf", SizeBytes: 1}, appErrors.ErrTooManyFiles},
		{"zero size", nil, dto.FileMeta{DocType: "invoice", FileName: "a.pdf", MimeType: "application/pdf"}, appErrors.ErrValidation},
		{"blank name", nil, dto.FileMeta{DocType: "invoice", FileName: "  ", MimeType: "application/pdf", SizeBytes: 1}, appErrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := q.Check(quotaRequest(), tc.existing, tc.meta)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestQuotaEnforcerTotalSizeBoundaryIsInclusive(t *testing.T) {
	q := NewQuotaEnforcer(0, nil)
	existing := []models.UploadFile{{SizeBytes: 400000, Status: models.UploadFileStored}}
	err := q.Check(quotaRequest(), existing, dto.FileMeta{DocType: "quote", FileName: "b.pdf", MimeType: "image/png", SizeBytes: 600000})
	require.NoError(t, err)
}

func TestQuotaEnforcerDefaults(t *testing.T) {
	q := NewQuotaEnforcer(0, []string{"application/pdf", "APPLICATION/PDF", ""})
	assert.Equal(t, int64(10*1024*1024), q.MaxFileBytes())
	assert.Equal(t, []string{"application/pdf"}, q.AllowedMIMEs())
}
