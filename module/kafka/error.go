package kafka

import (
	"fmt"

	"github.com/canopy-network/spectroscope/lib"
)

func ErrPublish(err error) lib.ErrorI {
	return lib.NewError(lib.CodePublish, lib.PublishModule, fmt.Sprintf("kafka.publish() failed with err: %s", err.Error()))
}
