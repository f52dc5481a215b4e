package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

// Uploader ships a finished export somewhere outside the process.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// FTPUploader stores exports on an FTP server.
type FTPUploader struct {
	Addr     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

func (u *FTPUploader) Upload(ctx context.Context, name string, r io.Reader) error {
	if u.Addr == "" {
		return errors.New("ftp address not configured")
	}
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	conn, err := ftp.Dial(u.Addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := u.User, u.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}
	if u.Dir != "" {
		if err := conn.ChangeDir(u.Dir); err != nil {
			return fmt.Errorf("ftp cwd %s: %w", u.Dir, err)
		}
	}
	if err := conn.Stor(name, r); err != nil {
		return fmt.Errorf("ftp stor %s: %w", name, err)
	}
	return nil
}

// Destination describes where Upload puts a file, for the export log.
func (u *FTPUploader) Destination(name string) string {
	if u.Dir == "" {
		return "ftp://" + u.Addr + "/" + name
	}
	return "ftp://" + u.Addr + "/" + u.Dir + "/" + name
}
