// Package scene defines the narrow view of a scene that the renderers
// consume, and Static, a simple in-memory implementation used by the demo
// and by tests.
//
// Entity storage, editing and serialization belong to the host
// application; anything that implements Source can be rendered.
package scene
