package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// SigV4 signs outgoing requests with AWS Signature Version 4. Used for
// Bedrock when credentials come from an explicit key pair or the ambient
// credential chain rather than a bearer token.
func SigV4(creds aws.CredentialsProvider, service, region string) Middleware {
	signer := v4.NewSigner()
	return func(next http.RoundTripper) http.RoundTripper {
		return &sigv4Transport{next: next, signer: signer, creds: creds, service: service, region: region}
	}
}

type sigv4Transport struct {
	next    http.RoundTripper
	signer  *v4.Signer
	creds   aws.CredentialsProvider
	service string
	region  string
}

func (t *sigv4Transport) Unwrap() http.RoundTripper { return t.next }

func (t *sigv4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)

	out := withBody(req, body)
	creds, err := t.creds.Retrieve(req.Context())
	if err != nil {
		return nil, err
	}
	if err := t.signer.SignHTTP(req.Context(), creds, out, hex.EncodeToString(sum[:]), t.service, t.region, time.Now()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(out)
}
