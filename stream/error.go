package stream

import (
	"fmt"

	"github.com/canopy-network/spectroscope/lib"
)

func ErrDial(url string, err error) lib.ErrorI {
	return lib.NewError(lib.CodeDial, lib.StreamModule, fmt.Sprintf("dial %s failed with err: %s", url, err.Error()))
}

func ErrSendWatch(err error) lib.ErrorI {
	return lib.NewError(lib.CodeSendWatch, lib.StreamModule, fmt.Sprintf("sending the watch request failed with err: %s", err.Error()))
}

func ErrRecvMessage(err error) lib.ErrorI {
	return lib.NewError(lib.CodeRecvMessage, lib.StreamModule, fmt.Sprintf("receiving a message failed with err: %s", err.Error()))
}

func ErrStreamClosed() lib.ErrorI {
	return lib.NewError(lib.CodeStreamClosed, lib.StreamModule, "the stream was closed by the source")
}
