package rfs

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/pkg/remote/handle"
)

func TestValueArms(t *testing.T) {
	h := handle.Handle{Endpoint: uuid.New(), Token: 99}

	tests := []struct {
		name  string
		value Value
	}{
		{"Null", Null},
		{"String", Value{Kind: ValueString, Str: "héllo"}},
		{"Int64", Value{Kind: ValueInt64, Int: -1 << 40}},
		{"Bool", Value{Kind: ValueBool, Bool: true}},
		{"Bytes", Value{Kind: ValueBytes, Bytes: []byte{1, 2, 3, 4, 5}}},
		{"Path", Value{Kind: ValuePath, Str: "/a/b c"}},
		{"AccessModes", Value{Kind: ValueAccessModes, Mask: 5}},
		{"LinkOptions", Value{Kind: ValueLinkOptions, Mask: 1}},
		{"AttributeKind", Value{Kind: ValueAttributeKind, Mask: 2}},
		{"FileAttributes", Value{Kind: ValueFileAttributes, FileAttributes: []FileAttribute{
			{Name: "posix:permissions", Value: "0700"},
		}}},
		{"Attributes", Value{Kind: ValueAttributes, Attributes: &AttributesRecord{
			Kind: 2, Type: 1, Size: 12, ModifiedNs: 1700000000123456789, TimesSet: TimeModified,
			FileKey: "mem:3", Owner: "root", Group: "wheel", UID: 0, GID: 10, Permissions: 0o644,
		}}},
		{"Filter", Value{Kind: ValueFilter, Mask: 3, Str: "*.txt"}},
		{"Handle", Value{Kind: ValueHandle, Handle: h}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := xdr.Marshal(&tt.value)
			require.NoError(t, err)
			assert.Zero(t, len(data)%4, "XDR bodies are 4-byte aligned")

			var got Value
			require.NoError(t, xdr.Unmarshal(data, &got))
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestValueUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteUint32(&buf, 77))

	var v Value
	err := xdr.Unmarshal(buf.Bytes(), &v)
	assert.ErrorContains(t, err, "unknown kind 77")

	bad := Value{Kind: ValueKind(77)}
	_, err = xdr.Marshal(&bad)
	assert.Error(t, err)
}

func TestValueTruncated(t *testing.T) {
	v := Value{Kind: ValuePath, Str: "/long/enough/path"}
	data, err := xdr.Marshal(&v)
	require.NoError(t, err)

	var got Value
	err = xdr.Unmarshal(data[:len(data)-4], &got)
	assert.ErrorContains(t, err, "decode PATH value")
}

func TestOutcomeArms(t *testing.T) {
	h := handle.Handle{Endpoint: uuid.New(), Token: 5}

	tests := []struct {
		name    string
		outcome *Outcome
	}{
		{"OK", OK([]byte{0, 0, 0, 1})},
		{"Failed", Failed(&Failure{Code: 3, Message: "no such file", Path: "/a", OtherPath: "/b"})},
		{"Stale", Stale(h)},
		{"Violation", Violation("both %s and %s", "result", "failure")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := xdr.Marshal(tt.outcome)
			require.NoError(t, err)

			var got Outcome
			require.NoError(t, xdr.Unmarshal(data, &got))
			assert.Equal(t, *tt.outcome, got)
		})
	}
}

func TestOutcomeOKEmptyResult(t *testing.T) {
	data, err := xdr.Marshal(OK(nil))
	require.NoError(t, err)
	assert.Len(t, data, 4)

	var got Outcome
	require.NoError(t, xdr.Unmarshal(data, &got))
	assert.Equal(t, StatusOK, got.Status)
	assert.Empty(t, got.Result)
}

func TestOutcomeFailedWithoutFailure(t *testing.T) {
	_, err := xdr.Marshal(&Outcome{Status: StatusFailed})
	assert.Error(t, err)
}

func TestValueBearingArgs(t *testing.T) {
	in := &ReadAttributesArgs{
		Path:    Value{Kind: ValuePath, Str: "/x"},
		Kind:    Value{Kind: ValueAttributeKind, Mask: 1},
		Options: Value{Kind: ValueLinkOptions, Mask: 1},
	}
	data, err := xdr.Marshal(in)
	require.NoError(t, err)

	var out ReadAttributesArgs
	require.NoError(t, xdr.Unmarshal(data, &out))
	assert.Equal(t, *in, out)

	var short CheckAccessArgs
	assert.Error(t, xdr.Unmarshal(data[:8], &short))
}

func TestFlatBodies(t *testing.T) {
	h := handle.Handle{Endpoint: uuid.New(), Token: 12}

	store := FileStoreRes{Store: ToWire(h), Name: "scratch", Type: "memory", ReadOnly: true}
	data, err := MarshalFlat(&store)
	require.NoError(t, err)

	var got FileStoreRes
	require.NoError(t, UnmarshalFlat(data, &got))
	assert.Equal(t, store, got)
	assert.Equal(t, h, got.Store.Handle())

	list := ListDirectoryRes{Entries: []string{"/a/x", "/a/y"}}
	data, err = MarshalFlat(&list)
	require.NoError(t, err)
	var gotList ListDirectoryRes
	require.NoError(t, UnmarshalFlat(data, &gotList))
	assert.Equal(t, list, gotList)

	err = UnmarshalFlat(append(data, 0, 0, 0, 0), &gotList)
	assert.ErrorContains(t, err, "trailing bytes")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "READ_ATTRIBUTES", ProcName(ProcReadAttributes))
	assert.Equal(t, "DELETE_IF_EXISTS", ProcName(ProcDeleteIfExists))
	assert.Equal(t, "PROC_99", ProcName(99))
	assert.Equal(t, "usable", SpaceName(SpaceUsable))
	assert.Equal(t, "stale", StatusStale.String())
	assert.Equal(t, "HANDLE", ValueHandle.String())
}
