//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Upstream=Upstream"
package external

import (
	"context"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
)

type Upstream interface {
	Do(ctx context.Context, req api.Request) (api.Response, error)
}
