// package testing contains shared testing utilities
package testing

import (
	"io"
	"net/http"
	"strings"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SeqRoundTripper replays a fixed sequence of responses, then repeats the last.
type SeqRoundTripper struct {
	Responses []*http.Response
	Calls     int
}

func (s *SeqRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := s.Calls
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	s.Calls++
	return s.Responses[i], nil
}

// JSONResponse builds an *http.Response with a JSON body for use with round trippers.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
