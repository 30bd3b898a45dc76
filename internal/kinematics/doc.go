// Package kinematics owns the data model shared by every planning stage.
//
// Responsibilities: the (x, y, v) kinematic state, fixed-length trajectories
// sampled at a uniform time step, vehicle footprints, and the agents whose
// motion is simulated around the ego vehicle.
// Key types: State, Trajectory, Footprint, Agent.
//
// Dependency rule: kinematics depends on nothing else in this module.
// Trajectories are immutable once constructed; every stage reads them through
// accessors and never writes back.
package kinematics
