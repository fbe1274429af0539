// Package serialization saves and loads model parameters and optimizer state
// in the .born checkpoint format.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00  magic "BORN"
//	    0x04  version (uint32 LE)
//	    0x08  flags (uint32 LE)
//	    0x10  header size (uint64 LE)
//	    0x18  data size (uint64 LE)
//	    0x20  SHA-256 of the data section
//	  [Header: JSON metadata]
//	  [padding to a 64-byte boundary]
//	  [Tensor data: float64 LE, row-major, in header order]
//
// Only float64 data is written. Tensor order is the insertion order of the
// StateDict, which for a model is the order of its NamedParameters.
//
// Example usage:
//
//	if err := serialization.SaveCheckpoint("xor.born", model, opt, serialization.CheckpointMeta{Epoch: 500}); err != nil {
//	    return err
//	}
//
//	meta, err := serialization.LoadCheckpoint("xor.born", model, opt)
package serialization
