package lark

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/garyjia/reportdesk/internal/application/port"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMessageCreator struct {
	createFunc func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error)
	requests   []*larkim.CreateMessageReq
}

func (m *mockMessageCreator) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	m.requests = append(m.requests, req)
	return m.createFunc(ctx, req)
}

func successResp(id string) *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{MessageId: &id},
	}
}

func TestMessenger_Send(t *testing.T) {
	creator := &mockMessageCreator{
		createFunc: func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
			return successResp("om_1"), nil
		},
	}
	m := &Messenger{messages: creator, logger: zap.NewNop()}

	err := m.Send(context.Background(), port.OutboundMessage{To: "reviewer@example.com", Body: "x"})
	require.NoError(t, err)
	assert.Len(t, creator.requests, 1)
}

func TestMessageBody(t *testing.T) {
	body, err := messageBody(port.OutboundMessage{
		To:      "reviewer@example.com",
		Subject: "ReportDesk: New Report Submitted",
		Body:    `Regular Employee submitted a new report: "Q1" Budget`,
	})
	require.NoError(t, err)

	assert.Equal(t, "reviewer@example.com", *body.ReceiveId)
	assert.Equal(t, msgTypeText, *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, "ReportDesk: New Report Submitted\nRegular Employee submitted a new report: \"Q1\" Budget", content["text"])
}

// fakeOpenAPI serves the tenant token and message endpoints and records
// what the SDK put on the wire
type fakeOpenAPI struct {
	mu       sync.Mutex
	query    url.Values
	auth     string
	received map[string]string
}

func (f *fakeOpenAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/open-apis/auth/v3/tenant_access_token/internal":
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","expire":7200,"tenant_access_token":"t-test"}`))
	case "/open-apis/im/v1/messages":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.query = r.URL.Query()
		f.auth = r.Header.Get("Authorization")
		f.received = body
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"code":0,"msg":"success","data":{"message_id":"om_wire"}}`))
	default:
		http.NotFound(w, r)
	}
}

func TestMessenger_SendOverSDK(t *testing.T) {
	api := &fakeOpenAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := NewSDKClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, zap.NewNop())
	m := NewMessenger(client, zap.NewNop())

	err := m.Send(context.Background(), port.OutboundMessage{
		To:      "approver@example.com",
		Subject: "ReportDesk: Report Ready for Approval",
		Body:    "Q1 Budget has been reviewed",
	})
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "email", api.query.Get("receive_id_type"))
	assert.Equal(t, "Bearer t-test", api.auth)
	assert.Equal(t, "approver@example.com", api.received["receive_id"])
	assert.Equal(t, "text", api.received["msg_type"])

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(api.received["content"]), &content))
	assert.Equal(t, "ReportDesk: Report Ready for Approval\nQ1 Budget has been reviewed", content["text"])
}

func TestMessenger_SendErrors(t *testing.T) {
	t.Run("empty recipient", func(t *testing.T) {
		m := &Messenger{messages: &mockMessageCreator{}, logger: zap.NewNop()}
		assert.Error(t, m.Send(context.Background(), port.OutboundMessage{Body: "x"}))
	})

	t.Run("transport error", func(t *testing.T) {
		m := &Messenger{messages: &mockMessageCreator{
			createFunc: func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
				return nil, errors.New("timeout")
			},
		}, logger: zap.NewNop()}
		assert.Error(t, m.Send(context.Background(), port.OutboundMessage{To: "a@example.com", Body: "x"}))
	})

	t.Run("api failure", func(t *testing.T) {
		m := &Messenger{messages: &mockMessageCreator{
			createFunc: func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
				return &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230001, Msg: "user not found"}}, nil
			},
		}, logger: zap.NewNop()}
		err := m.Send(context.Background(), port.OutboundMessage{To: "a@example.com", Body: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "230001")
	})
}
