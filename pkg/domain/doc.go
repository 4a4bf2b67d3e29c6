/*
Package domain contains the core models of the notasolver pipeline.

It defines the freehand geometry that enters the system, the equation
requests that move through the OCR and solve stages, and the result pods
that leave it. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - Point, Stroke, Region, StrokeSet: input geometry and the selection rectangle.
  - EquationRequest: one submission, its State and its recorded results.
  - State: pending -> ocr_in_flight -> solve_in_flight -> done | failed.
  - Pod: one titled, renderable section of a solution.
  - StageError / RequestError: the typed failure taxonomy.
*/
package domain
