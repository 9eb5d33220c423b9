// Package reference turns control-level task descriptions into the plain
// equality tasks the solver consumes.
//
// A tracking task drives an error e toward zero with a PD law
//
//	a_des = −kp·e − kv·ė + a_ref
//
// and hands the solver J·x = a_des − drift, where drift is the part of the
// task acceleration that does not depend on x. Gains can be fixed, derived
// (kv = 2√kp gives a critically damped, exponential decay) or adapted to the
// error size. A Mask keeps only the task axes that matter, for example the
// translational half of a 6-D frame task.
package reference
