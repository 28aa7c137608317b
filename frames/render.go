package frames

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Realizer forces full evaluation of a clip.
type Realizer interface {
	// Realize blocks until every frame of clip has been computed. It surfaces
	// the first failure of the filters behind the clip.
	Realize(ctx context.Context, clip *Clip) error
}

// Renderer requests frames concurrently, at most Threads() in flight, and
// drops each one as soon as it is computed.
type Renderer struct{}

// Realize implements Realizer.
func (Renderer) Realize(ctx context.Context, clip *Clip) error {
	if clip == nil {
		return errors.New("render: nil clip")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Threads())
	for n := 0; n < clip.Length; n++ {
		if gctx.Err() != nil {
			break
		}
		n := n
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("render frame %d: panic: %v", n, r)
				}
			}()
			if _, err := clip.Frame(n); err != nil {
				return errors.Wrapf(err, "render frame %d", n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
