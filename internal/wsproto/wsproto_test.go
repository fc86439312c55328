package wsproto

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_Open(t *testing.T) {
	req, err := ParseRequest([]byte(`{"Open":{"port":"/dev/ttyUSB0"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindOpen, req.Kind)
	assert.Equal(t, "/dev/ttyUSB0", req.Port)
}

func TestParseRequest_CloseEmptyMeansAll(t *testing.T) {
	req, err := ParseRequest([]byte(`{"Close":{}}`))
	require.NoError(t, err)
	assert.Equal(t, KindClose, req.Kind)
	assert.Empty(t, req.Port)
}

func TestParseRequest_List(t *testing.T) {
	req, err := ParseRequest([]byte(`{"List":{}}`))
	require.NoError(t, err)
	assert.Equal(t, KindList, req.Kind)
}

func TestParseRequest_WriteBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hi"))
	req, err := ParseRequest([]byte(`{"Write":{"port":"COM1","data":"` + encoded + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindWrite, req.Kind)
	assert.Equal(t, []byte("hi"), req.Data)
}

func TestParseRequest_WriteRawTextFallback(t *testing.T) {
	req, err := ParseRequest([]byte(`{"Write":{"port":"COM1","data":"not-base64!!"}}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("not-base64!!"), req.Data)
}

func TestParseRequest_BadJSON(t *testing.T) {
	_, err := ParseRequest([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrBadJSON)
}

func TestParseRequest_UnknownTag(t *testing.T) {
	_, err := ParseRequest([]byte(`{"Frobnicate":{}}`))
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestParseRequest_MultipleTagsRejected(t *testing.T) {
	_, err := ParseRequest([]byte(`{"Open":{"port":"a"},"List":{}}`))
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestNewRead_EncodesBase64(t *testing.T) {
	ev := NewRead("COM1", []byte("hi"))
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Read":{"port":"COM1","data":"aGk="}}`, string(b))
}

func TestNewError_OmitsEmptyFields(t *testing.T) {
	ev := NewError("", CodeUnknownRequest, "")
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Error":{"code":"UnknownRequest"}}`, string(b))
}

func TestNewList_NilBecomesEmptyArray(t *testing.T) {
	ev := NewList(nil)
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"List":{"ports":[]}}`, string(b))
}
