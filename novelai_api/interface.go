package novelai_api

import "context"

type NovelAIAPI interface {
	GenerateImage(ctx context.Context, payload *Payload) ([]byte, error)
}
