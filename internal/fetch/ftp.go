package fetch

import (
	"fmt"
	"net"
	"net/url"
	gopath "path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"
)

type ftpStrategy struct {
	timeout time.Duration
	log     zerolog.Logger
}

func splitFTPURL(rawURL string) (addr, dir, name string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", err
	}
	if parsed.Hostname() == "" {
		return "", "", "", fmt.Errorf("ftp URL %q has no host", rawURL)
	}
	port := parsed.Port()
	if port == "" {
		port = "21"
	}
	addr = net.JoinHostPort(parsed.Hostname(), port)
	p := parsed.Path
	if unescaped, uerr := url.PathUnescape(p); uerr == nil {
		p = unescaped
	}
	dir, name = gopath.Split(p)
	if name == "" {
		return "", "", "", fmt.Errorf("ftp URL %q has no file name", rawURL)
	}
	return addr, dir, name, nil
}

func (s *ftpStrategy) connect(addr, dir string) (*ftp.ServerConn, error) {
	timeout := s.timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %v", addr, err)
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("anonymous login: %v", err)
	}
	if dir != "" && dir != "/" {
		if err := conn.ChangeDir(dir); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("changing to directory %s: %v", dir, err)
		}
	}
	return conn, nil
}

// probe reports the server's SIZE for the resource, or -1 when the server
// does not implement SIZE.
func (s *ftpStrategy) probe(rawURL string) (string, int64, error) {
	addr, dir, name, err := splitFTPURL(rawURL)
	if err != nil {
		return "", 0, err
	}
	conn, err := s.connect(addr, dir)
	if err != nil {
		return "", 0, err
	}
	defer conn.Quit()
	size, err := conn.FileSize(name)
	if err != nil {
		return rawURL, -1, nil
	}
	return rawURL, size, nil
}

// checkRemoteSize compares the size reported at stream time with the probe
// size. A drift means the resource changed and the resume offset cannot be
// trusted. An unknown probe size disables the check.
func checkRemoteSize(st *transferState, size int64) error {
	if st.fileSize >= 0 && size != st.fileSize {
		return &ResumeError{
			URL:        st.url,
			LocalSize:  st.initialSize,
			RemoteSize: size,
			Reason:     "remote resource changed between probe and transfer",
		}
	}
	return nil
}

func (s *ftpStrategy) stream(st *transferState) error {
	addr, dir, name, err := splitFTPURL(st.url)
	if err != nil {
		return err
	}
	conn, err := s.connect(addr, dir)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return fmt.Errorf("setting binary mode: %v", err)
	}
	if st.fileSize >= 0 {
		if size, err := conn.FileSize(name); err == nil {
			if err := checkRemoteSize(st, size); err != nil {
				return err
			}
		}
	}

	// RetrFrom issues REST with the resume offset before RETR.
	resp, err := conn.RetrFrom(name, uint64(st.initialSize))
	if err != nil {
		return fmt.Errorf("retrieving %s: %v", name, err)
	}
	defer resp.Close()
	return writeChunks(st, resp)
}
