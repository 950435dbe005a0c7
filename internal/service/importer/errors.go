package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the importer service layer.
var (
	ErrNotFound  = errors.New("import batch not found")
	ErrNoPending = errors.New("no pending import batch")
)

// MappingConflictError blocks a batch whose auto-mapping cannot satisfy
// the required canonical fields. Row-level problems never produce this;
// only unmapped required fields and doubly-claimed fields do.
type MappingConflictError struct {
	Problems []string
}

func (e *MappingConflictError) Error() string {
	return fmt.Sprintf("column mapping conflict: %s", strings.Join(e.Problems, "; "))
}

// IsMappingConflict reports whether err is a batch-blocking mapping
// conflict.
func IsMappingConflict(err error) bool {
	var mce *MappingConflictError
	return errors.As(err, &mce)
}
