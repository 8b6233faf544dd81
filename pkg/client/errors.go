package client

import (
	"errors"

	v3 "github.com/module/nfsclient/pkg/nfs/v3"
	v4 "github.com/module/nfsclient/pkg/nfs/v4"
)

// isNotFound reports whether err is either protocol's NotFound kind, so
// FileExists can turn it into a plain boolean instead of propagating it.
func isNotFound(err error) bool {
	var v3nf *v3.NotFound
	var v4nf *v4.NotFound
	return errors.As(err, &v3nf) || errors.As(err, &v4nf)
}
