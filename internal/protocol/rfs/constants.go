// Package rfs defines the remote filesystem program: procedure numbers, the
// Marshaled Value union, the call Outcome union and per-procedure argument
// and result bodies.
//
// Bodies travel inside rpc CALL/REPLY messages. Flat structures are encoded
// with go-xdr; unions are encoded by hand so the discriminant drives which
// arm is read.
package rfs

import "fmt"

// Program identification.
const (
	Program uint32 = 0x52465331 // "RFS1"
	Version uint32 = 1
)

// Procedures of the RFS program.
const (
	ProcNull               uint32 = 0
	ProcHello              uint32 = 1
	ProcListDirectory      uint32 = 2
	ProcCreateDirectory    uint32 = 3
	ProcCreateSymbolicLink uint32 = 4
	ProcCreateLink         uint32 = 5
	ProcDelete             uint32 = 6
	ProcReadSymbolicLink   uint32 = 7
	ProcIsSameFile         uint32 = 8
	ProcIsHidden           uint32 = 9
	ProcGetFileStore       uint32 = 10
	ProcCheckAccess        uint32 = 11
	ProcReadAttributes     uint32 = 12
	ProcFileStoreSpace     uint32 = 13
	ProcRelease            uint32 = 14
	ProcFilterAccept       uint32 = 15
	ProcDeleteIfExists     uint32 = 16
)

var procNames = map[uint32]string{
	ProcNull:               "NULL",
	ProcHello:              "HELLO",
	ProcListDirectory:      "LIST_DIRECTORY",
	ProcCreateDirectory:    "CREATE_DIRECTORY",
	ProcCreateSymbolicLink: "CREATE_SYMBOLIC_LINK",
	ProcCreateLink:         "CREATE_LINK",
	ProcDelete:             "DELETE",
	ProcReadSymbolicLink:   "READ_SYMBOLIC_LINK",
	ProcIsSameFile:         "IS_SAME_FILE",
	ProcIsHidden:           "IS_HIDDEN",
	ProcGetFileStore:       "GET_FILE_STORE",
	ProcCheckAccess:        "CHECK_ACCESS",
	ProcReadAttributes:     "READ_ATTRIBUTES",
	ProcFileStoreSpace:     "FILE_STORE_SPACE",
	ProcRelease:            "RELEASE",
	ProcFilterAccept:       "FILTER_ACCEPT",
	ProcDeleteIfExists:     "DELETE_IF_EXISTS",
}

// ProcName returns the printable name of proc.
func ProcName(proc uint32) string {
	if name, ok := procNames[proc]; ok {
		return name
	}
	return fmt.Sprintf("PROC_%d", proc)
}

// Space figures selectable by FILE_STORE_SPACE.
const (
	SpaceTotal       uint32 = 1
	SpaceUsable      uint32 = 2
	SpaceUnallocated uint32 = 3
)

// SpaceName returns the printable name of a FILE_STORE_SPACE selector.
func SpaceName(which uint32) string {
	switch which {
	case SpaceTotal:
		return "total"
	case SpaceUsable:
		return "usable"
	case SpaceUnallocated:
		return "unallocated"
	default:
		return fmt.Sprintf("space_%d", which)
	}
}
