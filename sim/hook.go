package sim

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Now    VTimeInMs
	Item   interface{}
}

// Hookable defines an object that accepts Hooks.
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosEventDelivered is a hook position that triggers when an event
// reaches its target. Item is the delivered *NetworkEvent.
var HookPosEventDelivered = &HookPos{Name: "EventDelivered"}

// HookPosEventDropped is a hook position that triggers when an event is
// discarded by the loss policy or a disabled device. Item is the dropped
// *NetworkEvent.
var HookPosEventDropped = &HookPos{Name: "EventDropped"}

// Hook is a short piece of program that can be invoked by a hookable object.
//
// Hooks run synchronously inside the operation that triggers them. A hook
// must not call back into the engine that invoked it.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the registered Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
