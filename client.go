package pollhttp

import (
	"net/http"

	"github.com/frankli0324/pollhttp/internal"
	ihttp "github.com/frankli0324/pollhttp/internal/http"
)

type Header = http.Header
type Client = internal.Client
type Middleware = internal.Middleware
type Handler = internal.Handler
type PreparedRequest = ihttp.PreparedRequest
type Protocol = internal.Protocol

const (
	HTTP1 = internal.HTTP1
	H2C   = internal.H2C
)
