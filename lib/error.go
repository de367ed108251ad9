package lib

import (
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a single line including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("%s(%d): %s", p.EModule, p.ECode, p.Msg)
}

// IsCode() reports whether err is an ErrorI with the given module and code
func IsCode(err error, module ErrorModule, code ErrorCode) bool {
	var e ErrorI
	if !errors.As(err, &e) {
		return false
	}
	return e.Module() == module && e.Code() == code
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal    ErrorCode = 1
	CodeJSONUnmarshal  ErrorCode = 2
	CodeStringToBytes  ErrorCode = 3
	CodeLogWrite       ErrorCode = 7
	CodeUnknownStatus  ErrorCode = 8
	CodeUnknownRequest ErrorCode = 9
	CodeLoadEnv        ErrorCode = 10

	// Module Registry
	RegistryModule ErrorModule = "module"

	// Module Registry Error Codes
	CodeUnknownModuleType ErrorCode = 1
	CodeDuplicateFactory  ErrorCode = 2
	CodeMissingOption     ErrorCode = 3
	CodeMistypedOption    ErrorCode = 4
	CodeClassification    ErrorCode = 5
	CodeConnect           ErrorCode = 6
	CodeInvalidOption     ErrorCode = 7
	CodeDuplicateName     ErrorCode = 8
	CodeCloseModule       ErrorCode = 9

	// Dispatch Module
	DispatchModule ErrorModule = "dispatch"

	// Dispatch Module Error Codes
	CodeConsumePanic    ErrorCode = 2
	CodeConsumeTimeout  ErrorCode = 3
	CodeWrongRole       ErrorCode = 4
	CodeUnhandledKind   ErrorCode = 5
	CodeMissingIdentity ErrorCode = 6

	// Stream Module
	StreamModule ErrorModule = "stream"

	// Stream Module Error Codes
	CodeDial         ErrorCode = 1
	CodeSendWatch    ErrorCode = 2
	CodeRecvMessage  ErrorCode = 3
	CodeStreamClosed ErrorCode = 4

	// RPC Module
	RPCModule ErrorModule = "rpc"

	// RPC Module Error Codes
	CodeRPCTimeout    ErrorCode = 1
	CodeInvalidParams ErrorCode = 2
	CodePostRequest   ErrorCode = 3
	CodeHttpStatus    ErrorCode = 4
	CodeReadBody      ErrorCode = 5
	CodeGetRequest    ErrorCode = 6

	// Storage Module
	StorageModule ErrorModule = "store"

	// Storage Module Error Codes
	CodeOpenDB   ErrorCode = 1
	CodeCloseDB  ErrorCode = 2
	CodeStoreSet ErrorCode = 3
	CodeStoreGet ErrorCode = 4
	CodeStoreDel ErrorCode = 5

	// Publish Module
	PublishModule ErrorModule = "publish"

	// Publish Module Error Codes
	CodePublish ErrorCode = 1
)

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrLogWrite(err error) ErrorI {
	return NewError(CodeLogWrite, MainModule, fmt.Sprintf("log.write() failed with err: %s", err.Error()))
}

func ErrUnknownStatus(s string) ErrorI {
	return NewError(CodeUnknownStatus, MainModule, fmt.Sprintf("unknown validator status %q", s))
}

func ErrUnknownRequestType(s string) ErrorI {
	return NewError(CodeUnknownRequest, MainModule, fmt.Sprintf("unknown request type %q", s))
}

func ErrLoadEnv(err error) ErrorI {
	return NewError(CodeLoadEnv, MainModule, fmt.Sprintf("godotenv.Load() failed with err: %s", err.Error()))
}
