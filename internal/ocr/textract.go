package ocr

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/extract"
)

// TextractClient adapts AWS Textract to the Analyzer and AsyncAnalyzer
// boundaries, mapping the SDK block graph into the internal block model.
type TextractClient struct {
	tx     *textract.Client
	logger *slog.Logger
}

func NewTextractClient(cfg aws.Config, logger *slog.Logger) *TextractClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextractClient{
		tx:     textract.NewFromConfig(cfg),
		logger: logger,
	}
}

// AnalyzeSync runs a synchronous document analysis. Used for single-page
// image uploads where blocking on the provider call is acceptable.
func (c *TextractClient) AnalyzeSync(ctx context.Context, ref DocumentRef, features []Feature) (*BlockResponse, error) {
	doc := &types.Document{}
	if len(ref.Bytes) > 0 {
		doc.Bytes = ref.Bytes
	} else {
		doc.S3Object = &types.S3Object{
			Bucket: aws.String(ref.Bucket),
			Name:   aws.String(ref.Key),
		}
	}

	out, err := c.tx.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     doc,
		FeatureTypes: mapFeatures(features),
	})
	if err != nil {
		c.logger.Error("textract.analyze.failed", "error", err)
		return nil, common.NewAppError("TEXTRACT_ANALYZE", "analyze document", common.ErrProvider)
	}
	c.logger.Debug("textract.analyze.ok", "blocks", len(out.Blocks))
	return &BlockResponse{Blocks: mapBlocks(out.Blocks)}, nil
}

// Submit starts an asynchronous analysis of a document in the forms bucket.
// Textract async jobs only accept S3 references, never inline bytes.
func (c *TextractClient) Submit(ctx context.Context, ref DocumentRef, features []Feature) (string, error) {
	if ref.Bucket == "" || ref.Key == "" {
		return "", common.NewAppError("TEXTRACT_SUBMIT",
			"async analysis requires a stored document reference", common.ErrInvalidInput)
	}

	out, err := c.tx.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
		FeatureTypes: mapFeatures(features),
	})
	if err != nil {
		c.logger.Error("textract.submit.failed", "bucket", ref.Bucket, "key", ref.Key, "error", err)
		return "", common.NewAppError("TEXTRACT_SUBMIT", "start document analysis", common.ErrProvider)
	}
	return aws.ToString(out.JobId), nil
}

// JobStatus reports the provider-side state of an asynchronous job. When the
// job succeeded, all result pages are fetched and concatenated in order.
func (c *TextractClient) JobStatus(ctx context.Context, jobID string) (JobState, *BlockResponse, error) {
	out, err := c.tx.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		return JobFailed, nil, common.NewAppError("TEXTRACT_STATUS", "get document analysis", common.ErrProvider)
	}

	switch out.JobStatus {
	case types.JobStatusInProgress:
		return JobInProgress, nil, nil
	case types.JobStatusSucceeded:
		blocks := mapBlocks(out.Blocks)
		next := out.NextToken
		for next != nil {
			page, err := c.tx.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
				JobId:     aws.String(jobID),
				NextToken: next,
			})
			if err != nil {
				return JobFailed, nil, common.NewAppError("TEXTRACT_STATUS", "get analysis page", common.ErrProvider)
			}
			blocks = append(blocks, mapBlocks(page.Blocks)...)
			next = page.NextToken
		}
		return JobSucceeded, &BlockResponse{Blocks: blocks}, nil
	default:
		c.logger.Error("textract.job.failed",
			"job_id", jobID,
			"status", out.JobStatus,
			"message", aws.ToString(out.StatusMessage),
		)
		return JobFailed, nil, nil
	}
}

func mapFeatures(features []Feature) []types.FeatureType {
	out := make([]types.FeatureType, 0, len(features))
	for _, f := range features {
		switch f {
		case FeatureForms:
			out = append(out, types.FeatureTypeForms)
		case FeatureTables:
			out = append(out, types.FeatureTypeTables)
		}
	}
	return out
}

func mapBlocks(in []types.Block) []extract.Block {
	out := make([]extract.Block, 0, len(in))
	for _, b := range in {
		blk := extract.Block{
			ID:          aws.ToString(b.Id),
			Type:        extract.BlockType(b.BlockType),
			Text:        aws.ToString(b.Text),
			RowIndex:    int(aws.ToInt32(b.RowIndex)),
			ColumnIndex: int(aws.ToInt32(b.ColumnIndex)),
		}
		if b.SelectionStatus != "" {
			blk.SelectionStatus = extract.SelectionStatus(b.SelectionStatus)
		}
		for _, et := range b.EntityTypes {
			blk.EntityTypes = append(blk.EntityTypes, extract.EntityType(et))
		}
		for _, r := range b.Relationships {
			switch r.Type {
			case types.RelationshipTypeChild:
				blk.Relationships = append(blk.Relationships, extract.Relationship{
					Type: extract.RelationshipChild,
					IDs:  r.Ids,
				})
			case types.RelationshipTypeValue:
				blk.Relationships = append(blk.Relationships, extract.Relationship{
					Type: extract.RelationshipValue,
					IDs:  r.Ids,
				})
			}
		}
		out = append(out, blk)
	}
	return out
}

var (
	_ Analyzer      = (*TextractClient)(nil)
	_ AsyncAnalyzer = (*TextractClient)(nil)
)
