//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"
)

const defaultHTTPBase = "http://localhost:8080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(t *testing.T) *httpClient {
	t.Helper()

	base := os.Getenv("PRICEWATCH_HTTP_URL")
	if base == "" {
		base = defaultHTTPBase
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar failed: %v", err)
	}
	return &httpClient{
		baseURL: base,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *httpClient) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, buf.Bytes()
}

func (c *httpClient) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, buf.Bytes()
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/stores")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestAccountsE2E_HTTPFlow(t *testing.T) {
	httpBase := os.Getenv("PRICEWATCH_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultHTTPBase
	}
	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(t)

	state := struct {
		username string
		email    string
		password string
	}{
		username: fmt.Sprintf("e2e%d", time.Now().UnixNano()),
		password: "StrongPass1!",
	}
	state.email = state.username + "@example.com"

	abort := false
	fail := func(t *testing.T, format string, args ...any) {
		abort = true
		t.Fatalf(format, args...)
	}

	step := func(name string, fn func(t *testing.T)) {
		t.Run(name, func(t *testing.T) {
			if abort {
				t.Skip("previous step failed")
			}
			fn(t)
		})
	}

	step("LoginBeforeRegister", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/login", map[string]string{
			"username": state.username,
			"password": state.password,
		})
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected login before register to fail, got %d", resp.StatusCode)
		}
	})

	step("Register", func(t *testing.T) {
		resp, body := client.postJSON(t, "/accounts/register", map[string]string{
			"username": state.username,
			"email":    state.email,
			"password": state.password,
		})
		if resp.StatusCode != http.StatusCreated {
			fail(t, "register status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("RegisterWeakPassword", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/register", map[string]string{
			"username": "weak" + state.username,
			"email":    "weak-" + state.email,
			"password": "short",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected weak password register to fail, got %d", resp.StatusCode)
		}
	})

	step("RegisterDuplicate", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/register", map[string]string{
			"username": state.username,
			"email":    state.email,
			"password": state.password,
		})
		if resp.StatusCode != http.StatusConflict {
			fail(t, "expected duplicate register conflict, got %d", resp.StatusCode)
		}
	})

	step("LoginBeforeActivation", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/login", map[string]string{
			"username": state.username,
			"password": state.password,
		})
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected login before activation to fail, got %d", resp.StatusCode)
		}
	})

	step("ResendActivation", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/resend_activation", map[string]string{
			"email": state.email,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "expected resend activation 200, got %d", resp.StatusCode)
		}
	})

	step("ResendActivationUnknownAddress", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/resend_activation", map[string]string{
			"email": "missing-" + state.email,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "unknown address must get the same 200, got %d", resp.StatusCode)
		}
	})

	step("PasswordResetUnknownAddress", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/accounts/password_reset", map[string]string{
			"email": "missing-" + state.email,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "unknown address must get the same 200, got %d", resp.StatusCode)
		}
	})

	step("SessionCookieIssued", func(t *testing.T) {
		resp, _ := client.get(t, "/accounts/register_confirm/bm9wZQ==/sometoken")
		if resp.StatusCode != http.StatusOK {
			fail(t, "expected generic rejection page 200, got %d", resp.StatusCode)
		}
		found := false
		for _, cookie := range client.client.Jar.Cookies(resp.Request.URL) {
			if cookie.Name == "pw_session" {
				found = true
			}
		}
		if !found {
			fail(t, "expected pw_session cookie")
		}
	})

	step("ConfirmLinkGarbage", func(t *testing.T) {
		resp, body := client.get(t, "/accounts/register_confirm/!!!/garbage")
		if resp.StatusCode != http.StatusOK {
			fail(t, "bad link status: %d body: %s", resp.StatusCode, string(body))
		}
		if !bytes.Contains(body, []byte(`"valid":false`)) {
			fail(t, "expected valid=false, got %s", string(body))
		}
	})

	step("ListStores", func(t *testing.T) {
		resp, _ := client.get(t, "/stores")
		if resp.StatusCode != http.StatusOK {
			fail(t, "expected stores listing 200, got %d", resp.StatusCode)
		}
	})

	step("RecordPriceRequiresAuth", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/products/1/prices", map[string]float64{
			"price": 9.99,
		})
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected record price without token to fail, got %d", resp.StatusCode)
		}
	})
}
