package pollhttp_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/frankli0324/pollhttp"
)

func ExampleTransport() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"channel":"/meta/connect","successful":true}]`)
	}))
	defer srv.Close()

	tr := pollhttp.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Shutdown()

	resp := tr.SendText(&pollhttp.Request{
		URL:         srv.URL + "/cometd",
		TextContent: `[{"channel":"/meta/connect","connectionType":"long-polling"}]`,
	})
	fmt.Println(resp.StatusCode, resp.Text)
	// Output: 200 [{"channel":"/meta/connect","successful":true}]
}
