package core

import (
	"context"

	"github.com/markdave123-py/Alttexta/internal/models"
)

// MetadataService describes visual assets found in page rasters or whole documents.
type MetadataService interface {
	// DescribePage returns zero or more descriptors for one page image.
	DescribePage(ctx context.Context, img models.ImagePayload) ([]models.AssetDescriptor, error)
	// DescribeRegion returns exactly one descriptor for a cropped region.
	DescribeRegion(ctx context.Context, img models.ImagePayload) (*models.AssetDescriptor, error)
	// DescribeDocument handles documents that cannot be paginated (Word, web pages).
	DescribeDocument(ctx context.Context, doc models.DocumentPayload) ([]models.AssetDescriptor, error)
}
