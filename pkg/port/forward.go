package port

import (
	"context"
	"fmt"
)

// Forward moves values from in to out until in reports end-of-stream, calling each
// after every delivered value. Both handles are closed on return, so the upstream
// sender fails fast and the downstream receiver observes end-of-stream.
func Forward[T any](ctx context.Context, in *Input[T], out *Output[T], each func(T)) error {
	defer out.Close()
	defer in.Close()

	for {
		v, ok, err := in.Recv(ctx)
		if err != nil {
			return fmt.Errorf("forward %d -> %d: %w", in.ID(), out.ID(), err)
		}
		if !ok {
			return nil
		}
		if err := out.Send(ctx, v); err != nil {
			return fmt.Errorf("forward %d -> %d: %w", in.ID(), out.ID(), err)
		}
		if each != nil {
			each(v)
		}
	}
}
