package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/phenrril/myshop/internal/adapters/export"
	"github.com/phenrril/myshop/internal/adapters/repo/postgres"
	"github.com/phenrril/myshop/internal/adapters/textindex"
	"github.com/phenrril/myshop/internal/shopadmin"
	"github.com/phenrril/myshop/internal/testdb"
	"github.com/phenrril/myshop/internal/usecase"
)

const password = "s3cret"

func newTestServer(t *testing.T, auth AuthConfig) http.Handler {
	t.Helper()
	db := testdb.New(t)
	text, err := textindex.New(nil)
	require.NoError(t, err)
	deps := shopadmin.Deps{
		Products:         postgres.NewProductRepo(db),
		Pages:            postgres.NewCMSPageRepo(db),
		OperatingSystems: postgres.NewOperatingSystemRepo(db),
		Text:             text,
	}
	site, err := shopadmin.NewSite(deps)
	require.NoError(t, err)
	parent, err := site.LookupParent(shopadmin.BaseModel)
	require.NoError(t, err)
	osAdmin, err := site.Lookup("operatingsystem")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	auth.AdminUser = "admin"
	auth.AdminPasswordHash = string(hash)
	auth.Secret = []byte("test-secret")

	return New(site,
		&usecase.ProductUC{Products: deps.Products, OperatingSystems: deps.OperatingSystems, Parent: parent},
		&usecase.OperatingSystemUC{OperatingSystems: deps.OperatingSystems, Admin: osAdmin},
		auth)
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func (c *client) decode(rec *httptest.ResponseRecorder, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func login(t *testing.T, h http.Handler) *client {
	t.Helper()
	c := &client{t: t, h: h}
	rec := c.do(http.MethodPost, "/admin/auth", `{"user":"admin","pass":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	c.decode(rec, &out)
	assert.Equal(t, "admin@local", out.Email)
	c.token = out.Token
	return c
}

func TestAdminAuth(t *testing.T) {
	h := newTestServer(t, AuthConfig{})
	anon := &client{t: t, h: h}

	rec := anon.do(http.MethodGet, "/admin/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = anon.do(http.MethodPost, "/admin/auth", `{"user":"admin","pass":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c := login(t, h)
	rec = c.do(http.MethodGet, "/admin/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var index struct {
		Models []struct {
			Name        string `json:"name"`
			Polymorphic bool   `json:"polymorphic"`
		} `json:"models"`
	}
	c.decode(rec, &index)
	require.Len(t, index.Models, 2)
	assert.Equal(t, "operatingsystem", index.Models[0].Name)
	assert.Equal(t, "product", index.Models[1].Name)
	assert.True(t, index.Models[1].Polymorphic)

	forged := &client{t: t, h: h, token: c.token + "x"}
	assert.Equal(t, http.StatusUnauthorized, forged.do(http.MethodGet, "/admin/", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: c.token})
	cookieRec := httptest.NewRecorder()
	h.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)
}

func TestErrorMessages(t *testing.T) {
	h := newTestServer(t, AuthConfig{})
	anon := &client{t: t, h: h}
	c := login(t, h)

	tests := []struct {
		name   string
		c      *client
		method string
		path   string
		body   string
		status int
		detail string
	}{
		{"no token", anon, http.MethodGet, "/admin/", "", http.StatusUnauthorized, "authentication required"},
		{"wrong password", anon, http.MethodPost, "/admin/auth", `{"user":"admin","pass":"nope"}`, http.StatusUnauthorized, "invalid credentials"},
		{"broken login body", anon, http.MethodPost, "/admin/auth", `{`, http.StatusBadRequest, "invalid JSON"},
		{"google off", anon, http.MethodGet, "/admin/auth/google/login", "", http.StatusNotFound, "google login is not configured"},
		{"broken reorder body", c, http.MethodPost, "/admin/product/reorder/", `{`, http.StatusBadRequest, "invalid JSON"},
		{"validation", c, http.MethodPost, "/admin/operatingsystem/", `{"name":""}`, http.StatusUnprocessableEntity, "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.c.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var out struct {
				Detail string `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.detail, out.Detail)
		})
	}
}

type leafJSON struct {
	Product struct {
		ID    string `json:"id"`
		Slug  string `json:"slug"`
		Order int    `json:"order"`
	} `json:"product"`
}

func TestProductLifecycle(t *testing.T) {
	c := login(t, newTestServer(t, AuthConfig{}))

	rec := c.do(http.MethodGet, "/admin/product/add/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"smartphone"`)

	rec = c.do(http.MethodGet, "/admin/product/add/?ct=smartcard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"card_type"`)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/admin/product/add/?ct=tablet", "").Code)

	var ids []string
	for i, name := range []string{"USB Cable", "Charger"} {
		rec = c.do(http.MethodPost, "/admin/product/add/?ct=commodity", fmt.Sprintf(`{"product_name":%q,"unit_price":"%d.5","active":true}`, name, i+4))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var l leafJSON
		c.decode(rec, &l)
		assert.Equal(t, i+1, l.Product.Order)
		ids = append(ids, l.Product.ID)
	}

	rec = c.do(http.MethodPost, "/admin/product/add/?ct=commodity", `{"product_name":"x","storage":4}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	c.decode(rec, &verr)
	assert.Contains(t, verr.Fields, "storage")

	rec = c.do(http.MethodPost, "/admin/product/add/?ct=commodity", `{"product_name":"USB Cable"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	c.decode(rec, &verr)
	assert.Contains(t, verr.Fields, "slug")

	rec = c.do(http.MethodGet, "/admin/product/?q=usb", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cl usecase.ChangeList
	c.decode(rec, &cl)
	require.Len(t, cl.Rows, 1)
	assert.Equal(t, "USB Cable", cl.Rows[0].Values["product_name"])

	rec = c.do(http.MethodGet, "/admin/product/"+ids[0]+"/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var form struct {
		Model        string   `json:"model"`
		Placeholders []string `json:"placeholders"`
		Object       leafJSON `json:"object"`
	}
	c.decode(rec, &form)
	assert.Equal(t, "commodity", form.Model)
	assert.Equal(t, []string{shopadmin.DetailsSlot}, form.Placeholders)
	assert.Equal(t, "usb-cable", form.Object.Product.Slug)

	rec = c.do(http.MethodPut, "/admin/product/"+ids[0]+"/", `{"caption":"Braided"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Braided")

	rec = c.do(http.MethodPut, "/admin/product/"+ids[0]+"/placeholders/details", `{"html":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.do(http.MethodGet, "/admin/product/"+ids[0]+"/placeholders/details", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hello"`)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/admin/product/"+ids[0]+"/placeholders/footer", "").Code)

	rec = c.do(http.MethodPatch, "/admin/product/"+ids[1]+"/edit-field/product_name", `{"value":"Wall Charger"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/admin/product/"+ids[1]+"/edit-field/unit_price", `{"value":1}`).Code)

	rec = c.do(http.MethodPost, "/admin/product/reorder/", `{"startorder":2,"endorder":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/admin/product/reorder/", `{"startorder":0,"endorder":1}`).Code)

	rec = c.do(http.MethodGet, "/admin/product/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Wall Charger", rows[1][0])

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/admin/product/"+ids[0]+"/text-index", "").Code)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/admin/product/"+ids[0]+"/", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/product/"+ids[0]+"/", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/product/not-a-uuid/", "").Code)
}

func TestSmartPhoneTextIndex(t *testing.T) {
	c := login(t, newTestServer(t, AuthConfig{}))

	rec := c.do(http.MethodPost, "/admin/operatingsystem/", `{"name":"Android"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/admin/product/add/?ct=smartphone",
		`{"product_name":"Nexus 5X","manufacturer":"LG","operating_system":1,"variants":[{"product_code":"nexus-16","unit_price":379,"storage":16}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var l leafJSON
	c.decode(rec, &l)

	rec = c.do(http.MethodGet, "/admin/product/"+l.Product.ID+"/text-index", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	c.decode(rec, &out)
	assert.Equal(t, "Text Index", out["label"])
	assert.Contains(t, out["content"], "Nexus 5X")
	assert.Contains(t, out["content"], "Android")
}

func TestOperatingSystems(t *testing.T) {
	c := login(t, newTestServer(t, AuthConfig{}))

	rec := c.do(http.MethodPost, "/admin/operatingsystem/", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/admin/operatingsystem/", `{"name":"Andriod"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPut, "/admin/operatingsystem/1/", `{"name":"Android"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/admin/operatingsystem/", `{"name":"Android"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/admin/operatingsystem/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	c.decode(rec, &list)
	require.Len(t, list.Results, 1)
	assert.Equal(t, "Android", list.Results[0].Name)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/admin/operatingsystem/1/", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/operatingsystem/1/", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/operatingsystem/abc/", "").Code)
}

func TestGoogleCallback(t *testing.T) {
	email := "owner@example.com"
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`)
		case "/userinfo":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			fmt.Fprintf(w, `{"email":%q}`, email)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(provider.Close)

	h := newTestServer(t, AuthConfig{
		AllowedEmails: []string{" Owner@Example.com "},
		OAuth: &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"},
		},
		UserInfoURL: provider.URL + "/userinfo",
	})

	callback := func(state, cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/auth/google/callback?code=xyz&state="+state, nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookie})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, callback("a", "b").Code)

	rec := callback("st", "st")
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	var token string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == adminCookie {
			token = ck.Value
		}
	}
	require.NotEmpty(t, token)
	c := &client{t: t, h: h, token: token}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/admin/", "").Code)

	email = "intruder@example.com"
	assert.Equal(t, http.StatusForbidden, callback("st", "st").Code)

	redirect := httptest.NewRecorder()
	h.ServeHTTP(redirect, httptest.NewRequest(http.MethodGet, "/admin/auth/google/login", nil))
	assert.Equal(t, http.StatusFound, redirect.Code)
	assert.True(t, strings.HasPrefix(redirect.Header().Get("Location"), provider.URL+"/auth"))
}
