// Package client is a typed gateway to the character record service.
//
// Every method fails with a *Error whose Unwrap returns one of the kind
// sentinels, so callers branch with errors.Is:
//
//	if errors.Is(err, client.ErrNotFound) { ... }
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// Failure kinds.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
	ErrTransport    = errors.New("transport error")
	ErrDecode       = errors.New("decode error")
)

// Error describes a failed call. Status is 0 for transport failures.
type Error struct {
	Op      string
	Status  int
	Message string
	kind    error
	cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(e.Status))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the kind sentinel and, for transport and decode failures, the cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func kindFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServer
	}
}

// Client talks to one record service. It keeps the session cookie set by
// Login and replays it on later calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

const defaultTimeout = 30 * time.Second

type options struct {
	httpClient *http.Client
	timeout    *time.Duration
}

type Option func(*options)

// WithHTTPClient uses a copy of hc as the underlying client. A cookie jar is
// attached to the copy when hc has none; hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout, regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = &d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", baseURL, err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	hc := &http.Client{Timeout: defaultTimeout}
	if o.httpClient != nil {
		copied := *o.httpClient
		hc = &copied
	}
	if o.timeout != nil {
		hc.Timeout = *o.timeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}, nil
}

// do sends body as JSON and decodes a 2xx response into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, kind: ErrValidation, cause: err}
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return &Error{Op: op, kind: ErrTransport, cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, kind: ErrTransport, cause: err}
	}
	defer resp.Body.Close()

	if err := checkResp(resp, op); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, kind: ErrDecode, cause: err}
	}
	return nil
}

func checkResp(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Op: op, Status: resp.StatusCode, Message: msg, kind: kindFor(resp.StatusCode)}
}

func characterPath(id int64) string {
	return "/api/characters/" + strconv.FormatInt(id, 10)
}

// Register creates an account and returns the new user id.
func (c *Client) Register(ctx context.Context, username, email, password string) (int64, error) {
	var resp models.RegisterResponse
	err := c.do(ctx, "register", http.MethodPost, "/api/users/register",
		models.RegisterRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.UserID, nil
}

// Login authenticates and stores the session cookie for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var resp models.LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/api/users/login",
		models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/users/logout", nil, nil)
}

// Me returns the user the current session belongs to.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	if err := c.do(ctx, "me", http.MethodGet, "/api/users/me", nil, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// CreateCharacter returns the id of the new character.
func (c *Client) CreateCharacter(ctx context.Context, in models.CharacterInput) (int64, error) {
	var resp models.CreateCharacterResponse
	if err := c.do(ctx, "create character", http.MethodPost, "/api/characters", in, &resp); err != nil {
		return 0, err
	}
	return resp.CharacterID, nil
}

func (c *Client) GetCharacter(ctx context.Context, id int64) (models.Character, error) {
	var ch models.Character
	if err := c.do(ctx, "get character", http.MethodGet, characterPath(id), nil, &ch); err != nil {
		return models.Character{}, err
	}
	return ch, nil
}

// ListCharacters returns the characters of userID in creation order.
func (c *Client) ListCharacters(ctx context.Context, userID int64) ([]models.Character, error) {
	path := "/api/characters/user?userId=" + strconv.FormatInt(userID, 10)
	list := []models.Character{}
	if err := c.do(ctx, "list characters", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UpdateCharacter(ctx context.Context, id int64, in models.CharacterInput) error {
	return c.do(ctx, "update character", http.MethodPut, characterPath(id), in, nil)
}

// DeleteCharacter succeeds when the character is already gone.
func (c *Client) DeleteCharacter(ctx context.Context, id int64) error {
	return c.do(ctx, "delete character", http.MethodDelete, characterPath(id), nil, nil)
}

func (c *Client) ListSkills(ctx context.Context) ([]models.Skill, error) {
	list := []models.Skill{}
	if err := c.do(ctx, "list skills", http.MethodGet, "/api/skills", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ExportSheet renders and stores the character sheet, returning its object key.
func (c *Client) ExportSheet(ctx context.Context, id int64) (string, error) {
	var resp models.ExportResponse
	if err := c.do(ctx, "export sheet", http.MethodPost, characterPath(id)+"/sheet", nil, &resp); err != nil {
		return "", err
	}
	return resp.Key, nil
}

func (c *Client) GetSheet(ctx context.Context, id int64) (models.Sheet, error) {
	var sheet models.Sheet
	if err := c.do(ctx, "get sheet", http.MethodGet, characterPath(id)+"/sheet", nil, &sheet); err != nil {
		return models.Sheet{}, err
	}
	return sheet, nil
}

// ListActivity returns the caller's recent character activity, newest first.
func (c *Client) ListActivity(ctx context.Context) ([]models.Activity, error) {
	list := []models.Activity{}
	if err := c.do(ctx, "list activity", http.MethodGet, "/api/users/me/activity", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
