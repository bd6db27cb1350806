package s3

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/coolmotors/coolmotors-backend/pkg/config"
	"github.com/coolmotors/coolmotors-backend/pkg/logger"
)

const (
	serviceName = "s3"
	pingTimeout = 5 * time.Second
	timeFormat  = "20060102T150405Z"
	dateFormat  = "20060102"
)

// Client talks to a single S3 bucket over the REST API with SigV4 request
// signing. Put is all-or-nothing per object; Delete of a missing key is not
// an error.
type Client struct {
	httpClient *http.Client
	bucket     string
	region     string
	keyID      string
	secret     string
	baseURL    string
	now        func() time.Time
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient constructs an S3 client bound to the configured bucket.
func NewClient(ctx context.Context, cfg config.AWSConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3 bucket region is required")
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucket:     cfg.BucketName,
		region:     cfg.Region,
		keyID:      cfg.AccessKeyID,
		secret:     cfg.SecretAccessKey,
		baseURL:    fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region),
		now:        time.Now,
	}

	if logg != nil {
		logg.Info(ctx, "s3 client initialized")
	}

	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// URL returns the public object URL for a key.
func (c *Client) URL(key string) string {
	return c.baseURL + "/" + key
}

// KeyFromURL reverses URL; it returns "" when the URL does not belong to this bucket.
func (c *Client) KeyFromURL(objectURL string) string {
	prefix := c.baseURL + "/"
	if !strings.HasPrefix(objectURL, prefix) {
		return ""
	}
	return strings.TrimPrefix(objectURL, prefix)
}

// Put uploads a single object and returns its public URL. The write is
// atomic: readers never observe a partial object.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading object body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(payload))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if err := c.sign(req, payload); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("put", key, resp)
	}

	return c.URL(key), nil
}

// Delete removes an object. Deleting a key that does not exist succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("object key is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return err
	}

	if err := c.sign(req, nil); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// S3 returns 204 for deletes, including deletes of missing keys.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError("delete", key, resp)
}

// Ping verifies the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("s3 client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	if err := c.sign(req, nil); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("s3 bucket check failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	escaped := (&url.URL{Path: "/" + key}).EscapedPath()
	return c.baseURL + escaped
}

func statusError(op, key string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("s3 %s %s failed: %s: %s", op, key, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("s3 %s %s failed: %s", op, key, resp.Status)
}

// sign applies AWS Signature Version 4 headers to the request.
func (c *Client) sign(req *http.Request, payload []byte) error {
	if c.keyID == "" || c.secret == "" {
		// Unsigned requests only work against anonymous-write buckets and
		// local stand-ins; production configs always carry credentials.
		return nil
	}

	now := c.now().UTC()
	amzDate := now.Format(timeFormat)
	dateStamp := now.Format(dateFormat)

	payloadHash := hashHex(payload)
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("Host", req.URL.Host)

	signedHeaders, canonicalHeaders := canonicalizeHeaders(req)

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, c.region, serviceName, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hashHex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveKey(c.secret, dateStamp, c.region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		c.keyID, scope, signedHeaders, signature,
	))
	return nil
}

func canonicalizeHeaders(req *http.Request) (signedHeaders, canonicalHeaders string) {
	names := []string{"host"}
	for name := range req.Header {
		lower := strings.ToLower(name)
		if lower == "x-amz-date" || lower == "x-amz-content-sha256" || lower == "content-type" {
			names = append(names, lower)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := req.Header.Get(name)
		if name == "host" {
			value = req.URL.Host
		}
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(strings.TrimSpace(value))
		b.WriteString("\n")
	}
	return strings.Join(names, ";"), b.String()
}

func deriveKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(serviceName))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hashHex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
