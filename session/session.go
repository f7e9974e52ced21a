// Package session wires the transport, correlator, dispatcher, rate
// limiter, relay, and account selection together into the single object a
// caller uses to log in and subscribe to streaming services.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexgolec/td-ameritrade-api/auth"
	"github.com/alexgolec/td-ameritrade-api/correlator"
	"github.com/alexgolec/td-ameritrade-api/dispatcher"
	"github.com/alexgolec/td-ameritrade-api/envelope"
	"github.com/alexgolec/td-ameritrade-api/fields"
	"github.com/alexgolec/td-ameritrade-api/principals"
	"github.com/alexgolec/td-ameritrade-api/ratelimit"
	"github.com/alexgolec/td-ameritrade-api/relay"
	"github.com/alexgolec/td-ameritrade-api/transport"
)

// LoginError reports a failure that happens before or during the login
// handshake, as distinct from a protocol error surfaced once authenticated.
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: login: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("session: login: %s", e.Reason)
}

func (e *LoginError) Unwrap() error { return e.Err }

// Dialer opens a Transport to url. Production code passes transport.Dial;
// tests substitute a fake.
type Dialer func(ctx context.Context, url string, cfg transport.Config) (transport.Transport, error)

// Metrics is the subset of the metrics package a Session reports against.
// It is declared here, not imported from internal/metrics, so session has
// no dependency on the ambient stack's concrete type. Its method set is a
// superset of correlator.Metrics, so a single sink satisfies both.
type Metrics interface {
	IncrementRequestsSent()
	IncrementMessagesReceived()
	IncrementMessagesDelivered()
	IncrementHandlerErrors()
	SetBacklogDepth(n int)
	RecordResponseError(kind string)
}

// noopMetrics is used when the caller has no metrics sink to offer.
type noopMetrics struct{}

func (noopMetrics) IncrementRequestsSent()      {}
func (noopMetrics) IncrementMessagesReceived()  {}
func (noopMetrics) IncrementMessagesDelivered() {}
func (noopMetrics) IncrementHandlerErrors()     {}
func (noopMetrics) SetBacklogDepth(int)         {}
func (noopMetrics) RecordResponseError(string)  {}

// Session is the single authenticated handle to the gateway.
type Session struct {
	account      principals.Account
	streamerInfo principals.StreamerInfo

	tr         transport.Transport
	correlator *correlator.Correlator
	dispatcher *dispatcher.Dispatcher
	limiter    *ratelimit.Limiter
	relay      *relay.Relay
	metrics    Metrics

	log zerolog.Logger
}

// Config carries everything Login needs beyond the principals provider.
type Config struct {
	AccountID       string
	TransportConfig transport.Config
	Dial            Dialer
	Relay           *relay.Relay
	Metrics         Metrics
	Logger          zerolog.Logger
}

func defaultDialer(ctx context.Context, wsURL string, cfg transport.Config) (transport.Transport, error) {
	return transport.Dial(ctx, wsURL, cfg)
}

// Login fetches principals, selects an account, opens the transport, and
// performs the ADMIN/LOGIN handshake described in SPEC_FULL §4.7.
func Login(ctx context.Context, provider principals.Provider, cfg Config) (*Session, error) {
	dial := cfg.Dial
	if dial == nil {
		dial = defaultDialer
	}
	log := cfg.Logger
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	princ, err := provider.GetUserPrincipals(ctx)
	if err != nil {
		return nil, &LoginError{Reason: "could not retrieve user principals", Err: err}
	}

	account, err := principals.SelectAccount(princ, cfg.AccountID)
	if err != nil {
		return nil, &LoginError{Reason: err.Error()}
	}

	timestampMs, err := parseTokenTimestamp(princ.StreamerInfo.TokenTimestamp)
	if err != nil {
		return nil, &LoginError{Reason: "could not parse token timestamp", Err: err}
	}

	credential := buildCredentialString(account, princ.StreamerInfo, timestampMs)

	tr, err := dial(ctx, princ.StreamerInfo.StreamerSocketURL, cfg.TransportConfig)
	if err != nil {
		return nil, &LoginError{Reason: "could not open transport", Err: err}
	}

	if expiry, ok, peekErr := auth.PeekExpiry(princ.StreamerInfo.Token); peekErr == nil && ok {
		log.Debug().Str("expiry", auth.MustFormat(expiry)).Msg("streamer token expiry")
	}

	s := &Session{
		account:      account,
		streamerInfo: princ.StreamerInfo,
		tr:           tr,
		dispatcher:   dispatcher.New(),
		limiter:      ratelimit.New(),
		relay:        cfg.Relay,
		metrics:      metrics,
		log:          log,
	}
	s.correlator = correlator.NewWithMetrics(tr, metrics)

	reqID := s.correlator.NextID()
	payload, err := envelope.BuildRequest(fields.ADMIN, "LOGIN", reqID, account.AccountID, princ.StreamerInfo.AppID, map[string]string{
		"credential": credential,
		"token":      princ.StreamerInfo.Token,
		"version":    "1.0",
	})
	if err != nil {
		_ = tr.Close()
		return nil, &LoginError{Reason: "could not build login request", Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		_ = tr.Close()
		return nil, &LoginError{Reason: "rate limiter wait", Err: err}
	}
	if err := tr.Send(ctx, payload); err != nil {
		_ = tr.Close()
		return nil, &LoginError{Reason: "could not send login request", Err: err}
	}
	metrics.IncrementRequestsSent()

	if _, err := s.correlator.AwaitResponse(ctx, reqID); err != nil {
		_ = tr.Close()
		return nil, &LoginError{Reason: "login rejected", Err: err}
	}

	s.log.Info().Str("account_id", account.AccountID).Msg("streamer session authenticated")
	return s, nil
}

// parseTokenTimestamp converts an ISO-8601 timestamp, accepting either
// +0000 or +00:00 offsets, to milliseconds since epoch.
func parseTokenTimestamp(ts string) (int64, error) {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized tokenTimestamp format: %q", ts)
}

// buildCredentialString URL-form-encodes the login credential fields in
// the declared order. url.Values would reorder keys alphabetically, which
// the gateway does not require but this client avoids relying on.
func buildCredentialString(account principals.Account, info principals.StreamerInfo, timestampMs int64) string {
	pairs := [][2]string{
		{"userid", account.AccountID},
		{"token", info.Token},
		{"company", account.Company},
		{"segment", account.Segment},
		{"cddomain", account.AccountCdDomainID},
		{"usergroup", info.UserGroup},
		{"accesslevel", info.AccessLevel},
		{"authorized", "Y"},
		{"timestamp", strconv.FormatInt(timestampMs, 10)},
		{"appid", info.AppID},
		{"acl", info.ACL},
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = url.QueryEscape(p[0]) + "=" + url.QueryEscape(p[1])
	}
	return strings.Join(parts, "&")
}

// Register adds a handler for service's data entries, invoked in
// registration order by HandleMessage.
func (s *Session) Register(service fields.ServiceID, handler dispatcher.HandlerFunc) {
	s.dispatcher.Register(service, handler)
}

// request issues a single request for service/command and awaits its
// response, serialising through the rate limiter first.
func (s *Session) request(ctx context.Context, service fields.ServiceID, command string, parameters map[string]string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	reqID := s.correlator.NextID()
	payload, err := envelope.BuildRequest(service, command, reqID, s.account.AccountID, s.streamerInfo.AppID, parameters)
	if err != nil {
		return fmt.Errorf("session: build request: %w", err)
	}
	if err := s.tr.Send(ctx, payload); err != nil {
		return fmt.Errorf("session: send: %w", err)
	}
	s.metrics.IncrementRequestsSent()
	if _, err := s.correlator.AwaitResponse(ctx, reqID); err != nil {
		return err
	}
	return nil
}

// fieldParameter renders fields as a sorted ascending comma-joined decimal
// code list, defaulting to every declared field for service when fields is
// empty.
func fieldParameter(service fields.ServiceID, requested []int) string {
	codes := requested
	if len(codes) == 0 {
		codes = fields.AllFieldCodes(service)
	}
	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// Subs replaces the subscription set for service to keys, with fields (or
// all declared fields if nil/empty).
func (s *Session) Subs(ctx context.Context, service fields.ServiceID, keys []string, fieldCodes []int) error {
	return s.request(ctx, service, "SUBS", map[string]string{
		"keys":   strings.Join(keys, ","),
		"fields": fieldParameter(service, fieldCodes),
	})
}

// Add extends the subscription set for service with keys.
func (s *Session) Add(ctx context.Context, service fields.ServiceID, keys []string, fieldCodes []int) error {
	return s.request(ctx, service, "ADD", map[string]string{
		"keys":   strings.Join(keys, ","),
		"fields": fieldParameter(service, fieldCodes),
	})
}

// Unsubs removes keys from service's subscription set.
func (s *Session) Unsubs(ctx context.Context, service fields.ServiceID, keys []string) error {
	return s.request(ctx, service, "UNSUBS", map[string]string{
		"keys": strings.Join(keys, ","),
	})
}

// View narrows the field set delivered for an existing subscription to
// service, where the gateway supports the VIEW command.
func (s *Session) View(ctx context.Context, service fields.ServiceID, fieldCodes []int) error {
	return s.request(ctx, service, "VIEW", map[string]string{
		"fields": fieldParameter(service, fieldCodes),
	})
}

// qosLevelNames maps the wire's integer QoS levels to their symbolic form,
// used only for logging.
var qosLevelNames = map[fields.QOSLevel]string{
	fields.QOSExpress:  "EXPRESS",
	fields.QOSRealTime: "REAL_TIME",
	fields.QOSFast:     "FAST",
	fields.QOSModerate: "MODERATE",
	fields.QOSSlow:     "SLOW",
	fields.QOSDelayed:  "DELAYED",
}

// QualityOfService sends ADMIN/QOS and reconfigures the local rate limiter
// to match, so the client's own send rate never outruns what it negotiated
// with the gateway.
func (s *Session) QualityOfService(ctx context.Context, level fields.QOSLevel) error {
	if err := s.request(ctx, fields.ADMIN, "QOS", map[string]string{
		"qoslevel": strconv.Itoa(int(level)),
	}); err != nil {
		return err
	}
	if err := s.limiter.SetLevel(level); err != nil {
		return fmt.Errorf("session: qos: %w", err)
	}
	s.log.Info().Str("level", qosLevelNames[level]).Msg("quality of service changed")
	return nil
}

// HandleMessage services one inbound frame per SPEC_FULL §4.7: it prefers
// the correlator's backlog over a fresh transport read, so data frames
// buffered during a pending AwaitResponse are never skipped.
func (s *Session) HandleMessage(ctx context.Context) error {
	if entry, ok := s.correlator.PopBacklog(); ok {
		return s.deliver(entry)
	}

	raw, err := s.tr.Recv(ctx)
	if err != nil {
		return fmt.Errorf("session: recv: %w", err)
	}

	frame, err := envelope.Classify(raw)
	if err != nil {
		s.metrics.RecordResponseError("malformed")
		return &correlator.UnexpectedResponse{Reason: fmt.Sprintf("malformed frame: %s", err)}
	}

	switch frame.Kind {
	case envelope.KindData:
		s.metrics.IncrementMessagesReceived()
		var errs []error
		for _, entry := range frame.Data {
			if err := s.deliver(entry); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) == 1 {
			return errs[0]
		}
		return errors.Join(errs...)
	case envelope.KindNotify:
		return nil
	case envelope.KindResponse:
		s.metrics.RecordResponseError("unsolicited")
		return &correlator.UnexpectedResponse{Reason: "response frame with no pending await"}
	default:
		s.metrics.RecordResponseError("malformed")
		return &correlator.UnexpectedResponse{Reason: "malformed frame"}
	}
}

func (s *Session) deliver(entry envelope.DataEntry) error {
	s.relay.Publish(entry)
	if err := s.dispatcher.Deliver(entry); err != nil {
		s.metrics.IncrementHandlerErrors()
		return err
	}
	s.metrics.IncrementMessagesDelivered()
	return nil
}

// Close closes the underlying transport and relay connection.
func (s *Session) Close() error {
	s.relay.Close()
	return s.tr.Close()
}
