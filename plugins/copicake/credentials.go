package copicake

import (
	"context"
	"net/http"
)

// Credentials authenticate every API call with "Authorization: Bearer <APIKey>".
type Credentials struct {
	APIKey string
}

// CredentialProperty describes one field the host asks the user for.
type CredentialProperty struct {
	Name        string
	DisplayName string
	Description string
	Secret      bool
	Required    bool
}

// CredentialTest is the request a host issues to check a key before use.
type CredentialTest struct {
	Method  string
	BaseURL string
	Path    string
}

// CredentialType is the metadata a host needs to store, render and test
// Copicake credentials. Storage and encryption stay with the host.
type CredentialType struct {
	Name             string
	DisplayName      string
	DocumentationURL string
	Properties       []CredentialProperty
	AuthScheme       string
	Test             CredentialTest
}

// APICredentialType describes the copicakeApi credential.
var APICredentialType = CredentialType{
	Name:             "copicakeApi",
	DisplayName:      "Copicake API",
	DocumentationURL: "https://docs.copicake.com/",
	Properties: []CredentialProperty{
		{
			Name:        "apiKey",
			DisplayName: "API Key",
			Description: "Your Copicake API key",
			Secret:      true,
			Required:    true,
		},
	},
	AuthScheme: "Bearer",
	Test: CredentialTest{
		Method:  http.MethodGet,
		BaseURL: DefaultBaseURL,
		Path:    mePath,
	},
}

// Verify calls the credential test endpoint and returns the account payload.
// A rejected key surfaces as a *RemoteError.
func (c *Client) Verify(ctx context.Context) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "copicake.Verify")
	defer span.End()

	test := APICredentialType.Test
	resp, err := c.http.R().
		SetContext(ctx).
		Execute(test.Method, test.Path)
	if err := checkResponse(test.Method, test.Path, resp, err); err != nil {
		recordError(span, err)
		return nil, err
	}

	_, payload, err := decodePayload(resp.Body())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return payload, nil
}
