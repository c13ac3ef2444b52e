package fincra_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/fincra"
)

func TestParseEvent(t *testing.T) {
	evt, err := fincra.ParseEvent([]byte(`{"event":"collection.successful","data":{"reference":"123","id":98765,"status":"successful"}}`))
	require.NoError(t, err)
	require.Equal(t, fincra.EventCollectionSuccessful, evt.Event)
	require.Equal(t, "123", evt.Data.OrderReference())
	require.Equal(t, "98765", evt.Data.TransactionID())
}

func TestParseEventNumericReference(t *testing.T) {
	evt, err := fincra.ParseEvent([]byte(`{"event":"collection.successful","data":{"reference":123}}`))
	require.NoError(t, err)
	require.Equal(t, "123", evt.Data.OrderReference())
}

func TestParseEventToleratesUnexpectedShapes(t *testing.T) {
	cases := map[string]struct {
		body      string
		event     string
		reference string
	}{
		"object amount":     {`{"event":"collection.successful","data":{"reference":"123","amount":{"value":1}}}`, fincra.EventCollectionSuccessful, "123"},
		"data array":        {`{"event":"collection.successful","data":[]}`, fincra.EventCollectionSuccessful, ""},
		"data string":       {`{"event":"collection.successful","data":"x"}`, fincra.EventCollectionSuccessful, ""},
		"boolean reference": {`{"event":"collection.successful","data":{"reference":true}}`, fincra.EventCollectionSuccessful, ""},
		"numeric event":     {`{"event":42}`, "42", ""},
		"empty event":       {`{"event":"  "}`, "", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			evt, err := fincra.ParseEvent([]byte(tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.event, evt.Event)
			require.Equal(t, tc.reference, evt.Data.OrderReference())
		})
	}
}

func TestParseEventRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `event=collection.successful`,
		"missing event": `{"data":{"reference":"123"}}`,
		"null event":    `{"event":null,"data":{"reference":"123"}}`,
		"array":         `[]`,
		"string body":   `"collection.successful"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fincra.ParseEvent([]byte(body))
			require.ErrorIs(t, err, fincra.ErrMalformedEvent)
		})
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"collection.successful","data":{"reference":"123"}}`)
	sig := fincra.Sign("whsec", body)

	require.True(t, fincra.VerifySignature("whsec", body, sig))
	require.False(t, fincra.VerifySignature("other", body, sig))
	require.False(t, fincra.VerifySignature("whsec", append(body, ' '), sig))
	require.False(t, fincra.VerifySignature("", body, sig))
	require.False(t, fincra.VerifySignature("whsec", body, ""))
}
