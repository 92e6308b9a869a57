package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveClient stores artifacts as files in one Google Drive folder. Keys are
// file names.
type DriveClient struct {
	srv      *drive.Service
	folderID string
}

func NewDriveClient(ctx context.Context, credentialsJSON, folderID string) (*DriveClient, error) {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil, fmt.Errorf("drive credentials must be provided")
	}

	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	if folderID == "" {
		folderID = "root"
	}
	return &DriveClient{srv: srv, folderID: folderID}, nil
}

func (c *DriveClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := c.srv.Files.List().
		Q(c.query(prefix, false)).
		Fields("nextPageToken, files(id, name, size)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				objects = append(objects, ObjectInfo{Key: f.Name, Size: f.Size})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("drive list failed: %w", err)
	}
	return objects, nil
}

func (c *DriveClient) DownloadObject(ctx context.Context, key string, w io.Writer) error {
	result, err := c.srv.Files.List().
		Q(c.query(key, true)).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive lookup failed: %w", err)
	}
	if len(result.Files) == 0 {
		return fmt.Errorf("drive file not found: %s", key)
	}

	resp, err := c.srv.Files.Get(result.Files[0].Id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file: %w", err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *DriveClient) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	file := &drive.File{
		Name:     key,
		MimeType: contentType,
		Parents:  []string{c.folderID},
	}
	_, err := c.srv.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive upload failed: %w", err)
	}
	return nil
}

func (c *DriveClient) query(name string, exact bool) string {
	q := fmt.Sprintf("'%s' in parents and trashed=false", c.folderID)
	if name == "" {
		return q
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	if exact {
		return q + fmt.Sprintf(" and name='%s'", escaped)
	}
	return q + fmt.Sprintf(" and name contains '%s'", escaped)
}
