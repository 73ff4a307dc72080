package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdonkor/payterm/internal/audit"
	"github.com/tdonkor/payterm/internal/domain"
)

// fakePeripheral scripts the engine surface.
type fakePeripheral struct {
	initOK     bool
	initCfg    *domain.RuntimeConfiguration
	alive      bool
	payOutcome domain.PaymentOutcome
	payAmount  int64
	unloadOK   bool
	settingsOK bool
	defaults   domain.RuntimeConfiguration
}

func (f *fakePeripheral) Init(ctx context.Context, cfg *domain.RuntimeConfiguration) bool {
	f.initCfg = cfg
	return f.initOK
}
func (f *fakePeripheral) Test() bool { return f.alive }
func (f *fakePeripheral) Pay(ctx context.Context, amount int64) domain.PaymentOutcome {
	f.payAmount = amount
	return f.payOutcome
}
func (f *fakePeripheral) Unload() bool                   { return f.unloadOK }
func (f *fakePeripheral) UpdateSettings(doc []byte) bool { return f.settingsOK }
func (f *fakePeripheral) DescribeSettings() ([]byte, error) {
	return domain.DescribeSettings()
}
func (f *fakePeripheral) Defaults() domain.RuntimeConfiguration { return f.defaults }

// fakeLifecycle scripts the supervisor surface.
type fakeLifecycle struct {
	initErr     error
	teardownErr error
	initialized int
	toredown    int
}

func (f *fakeLifecycle) Initialize(ctx context.Context) error {
	f.initialized++
	return f.initErr
}
func (f *fakeLifecycle) Teardown(ctx context.Context) error {
	f.toredown++
	return f.teardownErr
}

type fakeLister struct {
	records   []audit.Record
	gotFilter audit.Filter
	err       error
}

func (f *fakeLister) List(filter audit.Filter) ([]audit.Record, error) {
	f.gotFilter = filter
	return f.records, f.err
}

func newTestServer(p *fakePeripheral, l *fakeLifecycle, rl *fakeLister) *httptest.Server {
	return httptest.NewServer(NewRouter(p, l, rl))
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestInitTerminal(t *testing.T) {
	p := &fakePeripheral{
		initOK: true,
		defaults: domain.RuntimeConfiguration{
			Address:   "192.168.0.10:5000",
			POSNumber: 1,
		},
	}
	l := &fakeLifecycle{}
	srv := newTestServer(p, l, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/init", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	decodeBody(t, resp, &body)
	assert.True(t, body["ok"])
	assert.Equal(t, 1, l.initialized)

	// Empty body means the stored defaults go through unchanged.
	require.NotNil(t, p.initCfg)
	assert.Equal(t, "192.168.0.10:5000", p.initCfg.Address)
}

func TestInitTerminalBodyOverridesDefaults(t *testing.T) {
	p := &fakePeripheral{
		initOK:   true,
		defaults: domain.RuntimeConfiguration{Address: "192.168.0.10:5000", POSNumber: 1},
	}
	srv := newTestServer(p, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	payload := bytes.NewBufferString(`{"address":"10.0.0.9:5000","pos_number":7}`)
	resp, err := http.Post(srv.URL+"/api/v1/terminal/init", "application/json", payload)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, p.initCfg)
	assert.Equal(t, "10.0.0.9:5000", p.initCfg.Address)
	assert.Equal(t, 7, p.initCfg.POSNumber)
}

func TestInitTerminalSupervisionFailure(t *testing.T) {
	p := &fakePeripheral{initOK: true}
	l := &fakeLifecycle{initErr: errors.New("driver did not become ready")}
	srv := newTestServer(p, l, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/init", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, string(domain.ResultSupervisionError), body["result"])

	// The engine handshake is never attempted.
	assert.Nil(t, p.initCfg)
}

func TestInitTerminalEngineRejection(t *testing.T) {
	srv := newTestServer(&fakePeripheral{initOK: false}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/init", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTestTerminal(t *testing.T) {
	srv := newTestServer(&fakePeripheral{alive: true}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/terminal/test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	decodeBody(t, resp, &body)
	assert.True(t, body["alive"])
}

func TestPayTerminal(t *testing.T) {
	p := &fakePeripheral{
		payOutcome: domain.PaymentOutcome{
			Result:          domain.ResultOK,
			PaidAmount:      2500,
			CustomerReceipt: true,
		},
	}
	srv := newTestServer(p, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/pay", "application/json",
		bytes.NewBufferString(`{"amount":2500}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2500), p.payAmount)

	var body struct {
		OK      bool                  `json:"ok"`
		Outcome domain.PaymentOutcome `json:"outcome"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.OK)
	assert.Equal(t, domain.ResultOK, body.Outcome.Result)
	assert.Equal(t, int64(2500), body.Outcome.PaidAmount)
}

func TestPayTerminalValidationError(t *testing.T) {
	p := &fakePeripheral{
		payOutcome: domain.PaymentOutcome{Result: domain.ResultValidationError},
	}
	srv := newTestServer(p, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/pay", "application/json",
		bytes.NewBufferString(`{"amount":0}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		OK bool `json:"ok"`
	}
	decodeBody(t, resp, &body)
	assert.False(t, body.OK)
}

func TestPayTerminalBadBody(t *testing.T) {
	srv := newTestServer(&fakePeripheral{}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/pay", "application/json",
		bytes.NewBufferString(`{amount`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnloadTerminal(t *testing.T) {
	l := &fakeLifecycle{}
	srv := newTestServer(&fakePeripheral{unloadOK: true}, l, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/unload", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	decodeBody(t, resp, &body)
	assert.True(t, body["ok"])
	assert.Equal(t, 1, l.toredown)
}

func TestUnloadTerminalTeardownFailure(t *testing.T) {
	l := &fakeLifecycle{teardownErr: errors.New("kill stale driver: access denied")}
	srv := newTestServer(&fakePeripheral{unloadOK: true}, l, &fakeLister{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/terminal/unload", "application/json", nil)
	require.NoError(t, err)

	var body map[string]bool
	decodeBody(t, resp, &body)
	assert.False(t, body["ok"])
}

func TestUpdateSettings(t *testing.T) {
	srv := newTestServer(&fakePeripheral{settingsOK: true}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/terminal/settings",
		bytes.NewBufferString(`{"settings":[{"name":"pos_number","value":"7"}]}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateSettingsRejected(t *testing.T) {
	srv := newTestServer(&fakePeripheral{settingsOK: false}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/terminal/settings",
		bytes.NewBufferString(`{"settings":[{"name":"bogus","value":"1"}]}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSettingsSchema(t *testing.T) {
	srv := newTestServer(&fakePeripheral{}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/terminal/settings/schema")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Settings []domain.SettingDescriptor `json:"settings"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Settings)
}

func TestListTransactions(t *testing.T) {
	rl := &fakeLister{records: []audit.Record{
		{ID: "a", Outcome: string(domain.ResultOK)},
		{ID: "b", Outcome: string(domain.ResultOK)},
	}}
	srv := newTestServer(&fakePeripheral{}, &fakeLifecycle{}, rl)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/transactions?outcome=OK&limit=10")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "OK", rl.gotFilter.Outcome)
	assert.Equal(t, 10, rl.gotFilter.Limit)

	var body struct {
		Transactions []audit.Record `json:"transactions"`
		Count        int            `json:"count"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, "a", body.Transactions[0].ID)
}

func TestListTransactionsFailure(t *testing.T) {
	rl := &fakeLister{err: errors.New("query records: database locked")}
	srv := newTestServer(&fakePeripheral{}, &fakeLifecycle{}, rl)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/transactions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakePeripheral{}, &fakeLifecycle{}, &fakeLister{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
