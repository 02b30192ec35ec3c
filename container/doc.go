// Package container provides owning handles that consume emplace
// initializers.
//
// Every handle follows the same integration contract: allocate raw storage
// through a fallible Allocator, run the initializer on that storage's
// address, and on success adopt the storage as a finished handle. On
// initializer error the raw storage is released with no destructor call
// (the initializer already discharged that responsibility) and the error
// propagates unchanged. Allocation failure short-circuits before any
// initializer runs.
//
// The handles differ only in allocation strategy and ownership shape:
//
//	Box[T]          movable, exclusive; the value may be taken out
//	Pinned[T]       address-stable, exclusive; convertible to Arc via Share
//	Arc[T]          address-stable, shared; destroyed when the last clone closes
//	Slice[T]        movable batch storage for SliceInit
//	PinnedSlice[T]  address-stable batch storage for PinSliceInit
//
// Handle teardown (Close) is the only path that runs pinned destructors.
package container
