// package http contains the wire level request and response types used by
// the client that backs every polled exchange. the package name is meant to
// be same with the standard library so that call sites read naturally
//
// the package also contains some type and value aliases from standard
// library to avoid annoying imports
package http

import (
	"net/http"
)

type Header = http.Header

var NoBody = http.NoBody

var ErrBodyReadAfterClose = http.ErrBodyReadAfterClose
