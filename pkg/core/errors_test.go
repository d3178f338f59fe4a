package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupError_WrapsAndUnwraps(t *testing.T) {
	inner := errors.New("missing binary")
	err := FailSetup(inner)

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "setup:")
}

func TestEncodeDecodeFailure_CorrectionLimit(t *testing.T) {
	log := []Correction{
		{Handler: "frozen-job", Error: ErrorDescriptor{Reason: "stalled"}, Fix: "restarted", At: time.Now()},
	}
	src := &CorrectionLimitError{Handler: "frozen-job", Limit: 3, Log: log}

	payload := EncodeFailure(src, log)
	decoded := DecodeFailure(payload)

	var limitErr *CorrectionLimitError
	require.ErrorAs(t, decoded, &limitErr)
	assert.Equal(t, "frozen-job", limitErr.Handler)
	assert.Equal(t, 3, limitErr.Limit)
	require.Len(t, limitErr.Log, 1)
	assert.Equal(t, "restarted", limitErr.Log[0].Fix)
}

func TestEncodeDecodeFailure_Setup(t *testing.T) {
	payload := EncodeFailure(FailSetup(errors.New("bad params")), nil)
	decoded := DecodeFailure(payload)

	var setupErr *SetupError
	require.ErrorAs(t, decoded, &setupErr)
	assert.Contains(t, decoded.Error(), "bad params")
}

func TestEncodeDecodeFailure_Command(t *testing.T) {
	src := &CommandExitError{Command: "vasp_std", ExitCode: 137}
	decoded := DecodeFailure(EncodeFailure(src, nil))

	var remote *RemoteError
	require.ErrorAs(t, decoded, &remote)
	assert.Equal(t, FailureCommand, remote.Kind)
	assert.Contains(t, remote.Message, "137")
}

func TestEncodeDecodeFailure_CarriesLogForGenericErrors(t *testing.T) {
	log := []Correction{{Handler: "h", Fix: "f", At: time.Now()}}
	decoded := DecodeFailure(EncodeFailure(errors.New("boom"), log))

	var remote *RemoteError
	require.ErrorAs(t, decoded, &remote)
	assert.Equal(t, "boom", remote.Message)
	require.Len(t, remote.Log, 1)
}

func TestDecodeFailure_GarbagePayload(t *testing.T) {
	decoded := DecodeFailure([]byte("not json"))
	var remote *RemoteError
	require.ErrorAs(t, decoded, &remote)
	assert.Equal(t, FailureInternal, remote.Kind)
}

func TestEncodeFailure_WorkupKind(t *testing.T) {
	decoded := DecodeFailure(EncodeFailure(&WorkupError{Err: errors.New("no OUTCAR")}, nil))
	var remote *RemoteError
	require.ErrorAs(t, decoded, &remote)
	assert.Equal(t, FailureWorkup, remote.Kind)
}
