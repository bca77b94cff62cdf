package model

import "testing"

func TestDecodeText(t *testing.T) {
	for name, c := range map[string]struct {
		in   []byte
		want string
	}{
		"Empty":     {nil, ""},
		"ASCII":     {[]byte("hello"), "hello"},
		"Multibyte": {[]byte("héllo, 世界"), "héllo, 世界"},
		"Invalid":   {[]byte{'o', 'k', 0xff, 0xfe}, ""},
		"Truncated": {[]byte{0xe4, 0xb8}, ""},
	} {
		c := c
		t.Run(name, func(t *testing.T) {
			if got := DecodeText(c.in); got != c.want {
				t.Errorf("DecodeText(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestRequestContent(t *testing.T) {
	r := &Request{TextContent: "text", BinaryContent: []byte{1, 2}}
	if got := r.Content(Text); string(got) != "text" {
		t.Errorf("text content = %q", got)
	}
	if got := r.Content(Binary); len(got) != 2 || got[0] != 1 {
		t.Errorf("binary content = %v", got)
	}
	empty := &Request{}
	if got := empty.Content(Text); got == nil || len(got) != 0 {
		t.Errorf("empty text must still be a body, got %#v", got)
	}
	if got := empty.Content(Binary); got != nil {
		t.Errorf("missing binary content must mean no body, got %#v", got)
	}
}
