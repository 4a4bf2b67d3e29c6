/*
Package ports defines the driven ports (interfaces) of the notasolver pipeline.

These interfaces decouple the pipeline from the remote services it calls and
from where request state lives, so the same pipeline runs against an
in-process map, a shared Redis instance, or test fakes.

# Key Interfaces

  - EquationStore: keyed, atomically updated storage of EquationRequests.
  - OcrClient: turns extracted stroke geometry into symbolic text.
  - SolverClient: turns symbolic text into a raw solver document.

Contract tests every EquationStore must pass live in the tests subpackage.
*/
package ports
