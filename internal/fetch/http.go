package fetch

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dget-io/dget/internal/utils"
)

type httpStrategy struct {
	client *utils.HTTPClient
	log    zerolog.Logger
}

// probe resolves redirects and reads the declared size. A missing or
// chunked Content-Length reports -1 rather than guessing.
func (s *httpStrategy) probe(rawURL string) (string, int64, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", 0, fmt.Errorf("server returned %s", resp.Status)
	}
	return resp.Request.URL.String(), resp.ContentLength, nil
}

func (s *httpStrategy) stream(st *transferState) error {
	resp, err := s.open(st)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The remote changed between probe and transfer if the advertised
	// remainder no longer adds up.
	if st.fileSize >= 0 && resp.ContentLength >= 0 && resp.ContentLength+st.initialSize != st.fileSize {
		return &ResumeError{
			URL:        st.url,
			LocalSize:  st.initialSize,
			RemoteSize: resp.ContentLength + st.initialSize,
			Reason:     "remote resource changed between probe and transfer",
		}
	}
	return writeChunks(st, resp.Body)
}

// open issues the GET, with a Range header when resuming. A rejected range
// request (open error or a 200 instead of 206) restarts the transfer from
// zero as a designed transition, not a failure.
func (s *httpStrategy) open(st *transferState) (*http.Response, error) {
	req, err := http.NewRequest("GET", st.url, nil)
	if err != nil {
		return nil, err
	}
	if st.initialSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", st.initialSize))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if st.initialSize == 0 {
			return nil, err
		}
		s.log.Warn().Str("url", st.url).Err(err).Msg("Range request failed, restarting from zero")
		return s.restart(st)
	}
	if st.initialSize > 0 && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		s.log.Warn().Str("url", st.url).Int("status", resp.StatusCode).Msg("Server does not support resume, restarting from zero")
		return s.restart(st)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return resp, nil
}

func (s *httpStrategy) restart(st *transferState) (*http.Response, error) {
	st.initialSize = 0
	st.downloaded = 0
	req, err := http.NewRequest("GET", st.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return resp, nil
}
