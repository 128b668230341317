package discover

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/services"
)

func TestHandleRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		request *Request
	}{
		{
			name: "missing container path",
			request: &Request{
				MaxResults: 1000,
			},
		},
		{
			name: "bad regex",
			request: &Request{
				ContainerPath: "/test/container.dmg",
				NameRegex:     "[invalid",
				MaxResults:    1000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := app.NewContext()
			ctx.Quiet = true

			resp, err := Handle(ctx, tt.request)
			assert.Error(t, err)
			assert.Nil(t, resp)
		})
	}
}

func TestHandleFailsOnMissingContainer(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{
		ContainerPath: "/this/path/definitely/does/not/exist.dmg",
		MaxResults:    1000,
	})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestCreateSearchQuery(t *testing.T) {
	request := &Request{
		ContainerPath:  "/test/container.dmg",
		NamePattern:    "*.pdf",
		Extensions:     []string{"pdf", "doc"},
		CaseSensitive:  true,
		MinSize:        "1MB",
		MaxSize:        "100MB",
		ModifiedAfter:  "2024-01-01",
		ModifiedBefore: "2024-12-31",
		ContentSearch:  "secret",
		IncludeDeleted: true,
		MaxResults:     500,
	}

	query := createSearchQuery(request)

	assert.Equal(t, request.NamePattern, query.NamePattern)
	assert.Equal(t, request.Extensions, query.Extensions)
	assert.Equal(t, request.CaseSensitive, query.CaseSensitive)
	assert.Equal(t, request.MinSize, query.MinSize)
	assert.Equal(t, request.MaxSize, query.MaxSize)
	assert.Equal(t, request.ModifiedAfter, query.ModifiedAfter)
	assert.Equal(t, request.ModifiedBefore, query.ModifiedBefore)
	assert.Equal(t, request.ContentSearch, query.ContentSearch)
	assert.Equal(t, request.IncludeDeleted, query.IncludeDeleted)
	assert.Equal(t, request.MaxResults, query.MaxResults)
}

func TestLogSearchCriteria(t *testing.T) {
	// Test that verbose logging works without panicking
	ctx := app.NewContext()
	ctx.Verbose = true

	request := &Request{
		ContainerPath: "/test/container.dmg",
		Target: app.VolumeTarget{
			VolumeName: "Test Volume",
		},
		NamePattern:    "*.pdf",
		Extensions:     []string{"pdf"},
		ContentSearch:  "secret",
		MinSize:        "1MB",
		MaxSize:        "100MB",
		IncludeDeleted: true,
	}

	// This should not panic
	logSearchCriteria(ctx, request)

	// Test with non-verbose mode
	ctx.Verbose = false
	logSearchCriteria(ctx, request)
}

func TestToFileResultExtension(t *testing.T) {
	fi := services.FileInfo{Name: "report.pdf", Path: "/Documents/report.pdf", Size: 2048}
	f := toFileResult(fi, 1)
	assert.Equal(t, "pdf", f.Extension)
	assert.True(t, strings.HasSuffix(f.Name, ".pdf"))
}
