package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig = fmt.Errorf("memoryengine: invalid config")
	ErrInvalidQuery  = fmt.Errorf("memoryengine: invalid query")
	ErrEmbedding     = fmt.Errorf("memoryengine: embedding failed")
	ErrNotFound      = fmt.Errorf("memoryengine: not found")
	ErrInternal      = fmt.Errorf("memoryengine: internal error")
)
