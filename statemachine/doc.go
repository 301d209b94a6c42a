// Package statemachine runs named states with optional enter and exit hooks
// and per-state actions. Every operation completes through a callback, so
// hooks and actions may finish synchronously or later from any goroutine.
//
// A transition runs the current state's exit hook, swaps in the target state
// and its data, then runs the target's enter hook. Misuse (an unknown state,
// an action the current state does not offer, a second Start) is reported by
// the returned *Error and the callback is never called. Hook and action
// failures arrive only through the callback, wrapped in *HookError.
//
// Basic usage:
//
//	def, err := statemachine.NewBuilder().
//		State("off").Action("toggle", toggleOn).Done().
//		State("on").Action("toggle", toggleOff).Done().
//		Build()
//	if err != nil {
//		return err
//	}
//
//	engine := statemachine.NewEngine(statemachine.WithName("light"))
//	if err := engine.Attach(def); err != nil {
//		return err
//	}
//
//	err = engine.Start(ctx, "off", nil, func(err error) {
//		// started, or the enter hook failed
//	})
//
// Engines hold no lock while user code runs, so hooks and actions may call
// back into the engine. Save and Restore move the current state and data in
// and out; the store package persists them.
package statemachine
