package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// maxSignedBody bounds how much of a signed request body is buffered.
const maxSignedBody = 1 << 20

// SigningMessage is the payload a principal signs for one request.
func SigningMessage(method, path string, timestamp int64, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.Write(body)
	return b.Bytes()
}

// SignedPrincipal authenticates the caller from the X-Principal,
// X-Timestamp and X-Signature headers. The signature is ed25519 over
// SigningMessage, base58 encoded. Each signature is accepted once: seen
// remembers it for as long as its timestamp stays inside the skew window.
// now may be nil.
func SignedPrincipal(now func() time.Time, seen storage.ReplayGuard, logger *logrus.Logger) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Header.Get(constants.HeaderPrincipal)))
			if err != nil {
				return unauthorized(c, "invalid principal")
			}
			ts, err := strconv.ParseInt(strings.TrimSpace(req.Header.Get(constants.HeaderTimestamp)), 10, 64)
			if err != nil {
				return unauthorized(c, "invalid timestamp")
			}
			if skew := now().Sub(time.Unix(ts, 0)); skew > constants.MaxSignatureSkew || skew < -constants.MaxSignatureSkew {
				return unauthorized(c, "timestamp outside allowed skew")
			}
			sig, err := solana.SignatureFromBase58(strings.TrimSpace(req.Header.Get(constants.HeaderSignature)))
			if err != nil {
				return unauthorized(c, "invalid signature")
			}

			var body []byte
			if req.Body != nil {
				body, err = io.ReadAll(io.LimitReader(req.Body, maxSignedBody))
				if err != nil {
					return unauthorized(c, "unreadable body")
				}
				_ = req.Body.Close()
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			if !sig.Verify(pk, SigningMessage(req.Method, req.URL.Path, ts, body)) {
				return unauthorized(c, "signature mismatch")
			}
			fresh, err := seen.Claim(req.Context(), sig.String(), 2*constants.MaxSignatureSkew)
			if err != nil {
				logger.WithError(err).WithField("principal", pk.String()).Error("replay check failed")
				return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "replay check unavailable", Code: http.StatusServiceUnavailable})
			}
			if !fresh {
				return unauthorized(c, "signature already used")
			}

			c.Set(principalKey, pk)
			return next(c)
		}
	}
}

// OwnerOnly rejects principals other than owner. It must run after
// SignedPrincipal.
func OwnerOnly(owner solana.PublicKey) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pk, ok := principal(c)
			if !ok || !pk.Equals(owner) {
				return c.JSON(http.StatusForbidden, ErrorResponse{Error: "owner only", Code: http.StatusForbidden})
			}
			return next(c)
		}
	}
}

func principal(c echo.Context) (solana.PublicKey, bool) {
	pk, ok := c.Get(principalKey).(solana.PublicKey)
	return pk, ok
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: http.StatusUnauthorized})
}
