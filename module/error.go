package module

import (
	"fmt"

	"github.com/canopy-network/spectroscope/lib"
)

func ErrUnknownModuleType(t string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownModuleType, lib.RegistryModule, fmt.Sprintf("no factory registered for module type %q", t))
}

func ErrDuplicateFactory(t string) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateFactory, lib.RegistryModule, fmt.Sprintf("a factory for module type %q is already registered", t))
}

func ErrMissingOption(module, option string) lib.ErrorI {
	return lib.NewError(lib.CodeMissingOption, lib.RegistryModule, fmt.Sprintf("module %s is missing required option %q", module, option))
}

func ErrMistypedOption(module, option string, expected OptionType, got any) lib.ErrorI {
	return lib.NewError(lib.CodeMistypedOption, lib.RegistryModule,
		fmt.Sprintf("module %s option %q expected %s, got %T", module, option, expected, got))
}

func ErrInvalidOption(module, option string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidOption, lib.RegistryModule, fmt.Sprintf("module %s option %q is invalid: %s", module, option, err.Error()))
}

func ErrClassification(module string, role Role) lib.ErrorI {
	return lib.NewError(lib.CodeClassification, lib.RegistryModule,
		fmt.Sprintf("module %s does not implement the %s interface", module, role))
}

func ErrConnect(module string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeConnect, lib.RegistryModule, fmt.Sprintf("module %s failed to connect with err: %s", module, err.Error()))
}

func ErrDuplicateName(name string) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateName, lib.RegistryModule, fmt.Sprintf("module name %q is used more than once", name))
}

func ErrCloseModule(module string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeCloseModule, lib.RegistryModule, fmt.Sprintf("module %s failed to close with err: %s", module, err.Error()))
}

func ErrConsumePanic(module string, r any) lib.ErrorI {
	return lib.NewError(lib.CodeConsumePanic, lib.DispatchModule, fmt.Sprintf("module %s panicked: %v", module, r))
}

func ErrConsumeTimeout(module string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeConsumeTimeout, lib.DispatchModule, fmt.Sprintf("module %s did not finish: %s", module, err.Error()))
}

func ErrWrongRole(module string, role Role) lib.ErrorI {
	return lib.NewError(lib.CodeWrongRole, lib.DispatchModule, fmt.Sprintf("module %s is not a %s", module, role))
}

func ErrUnhandledKind(module string, kind lib.Kind) lib.ErrorI {
	return lib.NewError(lib.CodeUnhandledKind, lib.DispatchModule, fmt.Sprintf("module %s received unhandled kind %s", module, kind))
}

func ErrMissingIdentity(module string) lib.ErrorI {
	return lib.NewError(lib.CodeMissingIdentity, lib.DispatchModule, fmt.Sprintf("module %s requires a batch with a validator identity", module))
}
