package ir

// IRVersion is the version of the stack and solution data model.
// Bump it whenever Canonical output changes shape.
const IRVersion = "1"

// EngineVersion is recorded with every stored solve so replay can tell
// whether a hash mismatch comes from a code change or from nondeterminism.
const EngineVersion = "hqp-0.1.0"
