package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Session carries the credentials used for Google API calls. An access token wins over
// a credentials file; with neither, application default credentials are used.
type Session struct {
	AccessToken     string
	CredentialsFile string
}

// ClientOptions converts the session into google API client options.
func (s Session) ClientOptions(scopes ...string) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case s.AccessToken != "":
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.AccessToken})))
	case s.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(s.CredentialsFile))
	}
	if len(scopes) > 0 {
		opts = append(opts, option.WithScopes(scopes...))
	}
	return opts
}

// Drive downloads archives from Google Drive by file id.
type Drive struct {
	svc     *drive.Service
	fileIDs map[string]string
}

// NewDrive builds a Drive source. fileIDs maps archive file names to Drive file ids.
func NewDrive(ctx context.Context, fileIDs map[string]string, opts ...option.ClientOption) (*Drive, error) {
	if ctx == nil {
		return nil, errors.New("NewDrive: ctx is nil")
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewDrive: %w", err)
	}
	return &Drive{svc: svc, fileIDs: fileIDs}, nil
}

func (d *Drive) Name() string { return "drive" }

func (d *Drive) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	id, ok := d.fileIDs[ref]
	if !ok || id == "" {
		return nil, fmt.Errorf("Drive.Open: no Drive file id configured for %q", ref)
	}
	resp, err := d.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("Drive.Open: download %q: %w", ref, err)
	}
	return resp.Body, nil
}
