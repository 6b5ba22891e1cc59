package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/image"
)

type authEnvelope struct {
	model.AuthResponse
	Data *model.AuthResponse `json:"data,omitempty"`
}

type userEnvelope struct {
	model.User
	Data    *model.User `json:"data,omitempty"`
	Wrapped *model.User `json:"user,omitempty"`
}

func (e authEnvelope) unwrap() model.AuthResponse {
	if e.AccessToken == "" && e.Data != nil {
		return *e.Data
	}
	return e.AuthResponse
}

func (e userEnvelope) unwrap() model.User {
	switch {
	case !e.ID.IsZero():
		return e.User
	case e.Data != nil:
		return *e.Data
	case e.Wrapped != nil:
		return *e.Wrapped
	default:
		return e.User
	}
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, in model.LoginCredentials) (model.AuthResponse, error) {
	var out authEnvelope
	err := c.do(ctx, c.request(ctx).SetBody(in), http.MethodPost, "/auth/login", &out)
	return out.unwrap(), err
}

// Register creates an account. The form is sent as multipart so the avatar can ride along.
func (c *Client) Register(ctx context.Context, in model.RegisterData) (model.AuthResponse, error) {
	r := c.request(ctx).SetMultipartFormData(map[string]string{
		"nom":                   in.Nom,
		"prenom":                in.Prenom,
		"email":                 in.Email,
		"password":              in.Password,
		"password_confirmation": in.PasswordConfirmation,
	})
	attach(r, "avatar", in.Avatar)

	var out authEnvelope
	err := c.do(ctx, r, http.MethodPost, "/auth/register", &out)
	return out.unwrap(), err
}

// CurrentUser fetches the profile of the token holder.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var out userEnvelope
	err := c.do(ctx, c.request(ctx), http.MethodGet, "/auth/user", &out)
	return out.unwrap(), err
}

// UpdateAvatar uploads a new profile picture.
func (c *Client) UpdateAvatar(ctx context.Context, avatar image.Upload) (model.AvatarResponse, error) {
	r := c.request(ctx)
	attach(r, "avatar", &avatar)

	var out model.AvatarResponse
	err := c.do(ctx, r, http.MethodPost, "/auth/update-avatar", &out)
	return out, err
}

// attach adds an optional file part.
func attach(r *resty.Request, field string, up *image.Upload) {
	if up == nil || len(up.Data) == 0 {
		return
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(up.Data)
	}
	r.SetMultipartField(field, up.Name, contentType, bytes.NewReader(up.Data))
}
