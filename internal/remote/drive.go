package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"safetywatch/internal/providers"
	"safetywatch/internal/structures"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	defaultCallTimeout = 30 * time.Second
	listPageSize       = 1000

	folderListFields googleapi.Field = "nextPageToken,files(id,name,webViewLink)"
	fileListFields   googleapi.Field = "nextPageToken,files(id,name,mimeType)"
	folderFields     googleapi.Field = "id,name,webViewLink,trashed,permissions(id,type,role,emailAddress)"
	createdFields    googleapi.Field = "id,name,webViewLink"
)

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// DriveStore serves Store from Google Drive v3 as a service account.
type DriveStore struct {
	svc      *drive.Service
	identity string
	timeout  time.Duration
	logger   providers.Logger
}

func NewDriveStore(conf *structures.Config, logger providers.Logger) (Store, error) {
	raw, err := os.ReadFile(conf.Store.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("service account file: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("service account file: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account file %s: missing client_email or private_key", conf.Store.CredentialsFile)
	}

	opts := []option.ClientOption{
		option.WithCredentialsFile(conf.Store.CredentialsFile),
		option.WithScopes(drive.DriveScope),
	}
	if conf.Store.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(conf.Store.BaseURL))
	}
	svc, err := drive.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	logger.Infof(providers.TypeRemote, "Drive store ready as %s", key.ClientEmail)
	return newDriveStore(svc, key.ClientEmail, conf.Store.Timeout, logger), nil
}

// NewDriveStoreWithClient builds a store that sends every call through client
// to endpoint without authenticating.
func NewDriveStoreWithClient(ctx context.Context, client *http.Client, endpoint, identity string, logger providers.Logger) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return newDriveStore(svc, identity, 0, logger), nil
}

func newDriveStore(svc *drive.Service, identity string, timeout time.Duration, logger providers.Logger) *DriveStore {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &DriveStore{svc: svc, identity: identity, timeout: timeout, logger: logger}
}

func (d *DriveStore) Identity() string {
	return d.identity
}

func (d *DriveStore) FindFolders(ctx context.Context, name, parentID string) ([]Folder, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	var out []Folder
	err := d.list(ctx, "find folders", q, folderListFields, func(f *drive.File) {
		out = append(out, Folder{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DriveStore) GetFolder(ctx context.Context, id string) (*Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	f, err := d.svc.Files.Get(id).Fields(folderFields).SupportsAllDrives(true).Context(ctx).Do()
	d.trace("get folder "+id, started, err)
	if err != nil {
		return nil, wrapError("get folder "+id, err)
	}
	folder := &Folder{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink, Trashed: f.Trashed}
	for _, p := range f.Permissions {
		folder.Permissions = append(folder.Permissions, Permission{
			ID:           p.Id,
			Type:         p.Type,
			Role:         p.Role,
			EmailAddress: p.EmailAddress,
		})
	}
	return folder, nil
}

func (d *DriveStore) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	meta := &drive.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	started := time.Now()
	f, err := d.svc.Files.Create(meta).Fields(createdFields).SupportsAllDrives(true).Context(ctx).Do()
	d.trace("create folder "+name, started, err)
	if err != nil {
		return nil, wrapError("create folder "+name, err)
	}
	return &Folder{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

func (d *DriveStore) CreatePermission(ctx context.Context, fileID string, perm Permission, notify bool) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	grant := &drive.Permission{Type: perm.Type, Role: perm.Role, EmailAddress: perm.EmailAddress}
	started := time.Now()
	_, err := d.svc.Permissions.Create(fileID, grant).
		SendNotificationEmail(notify).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	d.trace("share "+fileID, started, err)
	if err != nil {
		return wrapError("share "+fileID, err)
	}
	return nil
}

func (d *DriveStore) GetFileContent(ctx context.Context, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	resp, err := d.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	d.trace("download "+id, started, err)
	if err != nil {
		return nil, wrapError("download "+id, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (d *DriveStore) ListFiles(ctx context.Context, parentID string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(parentID))
	var out []File
	err := d.list(ctx, "list "+parentID, q, fileListFields, func(f *drive.File) {
		out = append(out, File{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DriveStore) list(ctx context.Context, op, q string, fields googleapi.Field, each func(*drive.File)) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	started := time.Now()
	err := d.svc.Files.List().
		Q(q).
		Fields(fields).
		PageSize(listPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				each(f)
			}
			return nil
		})
	d.trace(op, started, err)
	if err != nil {
		return wrapError(op, err)
	}
	return nil
}

func (d *DriveStore) trace(op string, started time.Time, err error) {
	if err != nil {
		d.logger.Debugf(providers.TypeRemote, "%s failed after %s: %v", op, time.Since(started), err)
		return
	}
	d.logger.Debugf(providers.TypeRemote, "%s in %s", op, time.Since(started))
}

// wrapError keeps the googleapi error in the chain and adds ErrNotFound for 404s.
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("drive: %s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("drive: %s: %w", op, err)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
