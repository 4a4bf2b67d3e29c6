/*
Package notasolver turns handwritten equations into step-by-step solutions.

A submission is a set of strokes plus a rectangular selection. The strokes
inside the selection are sent to an OCR service (Mathpix) that returns
LaTeX, the LaTeX is sent to a solver (Wolfram|Alpha), and the solver's
document is normalized into an ordered list of titled image pods.

Every submission becomes an EquationRequest with a stable ID that moves
through pending, ocr_in_flight, solve_in_flight and then done or failed.
Requests run concurrently and complete in any order. Each one only ever
writes its own slot in the store, so the newest-first snapshot always shows
each request in its own latest state.

# Usage

	solver, err := notasolver.New(
		notasolver.WithMathpix(os.Getenv("MATHPIX_APP_ID"), os.Getenv("MATHPIX_APP_KEY")),
		notasolver.WithWolfram(os.Getenv("WOLFRAM_APP_ID")),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer solver.Close(context.Background())

	id, err := solver.Submit(ctx, strokes, domain.Region{X: 0, Y: 0, Width: 400, Height: 200})
	if err != nil {
		log.Fatal(err)
	}
	req, err := solver.Await(ctx, id)

# Adapters

The store is in memory by default. pkg/adapters/redis shares requests
between processes. pkg/adapters/http serves a JSON API with a live event
stream and pkg/adapters/mcp exposes the same operations as MCP tools.
*/
package notasolver
