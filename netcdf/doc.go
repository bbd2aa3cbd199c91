// Package netcdf reads netCDF classic and 64-bit offset files through any
// seekable byte source.
//
// The header is parsed once when a [File] is opened; variable data is read on
// demand, so a remote file is never downloaded as a whole:
//
//	f, err := netcdf.OpenRemote(ctx, "https://example.org/air.nc", 0)
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	vars, err := f.Variables()
//	temps, err := netcdf.Values[float32](f, "temp", nil, nil)
//
// # Errors
//
// Every parse and data failure is an [*Error] whose [ErrorKind] names the
// failure class. The package sentinels match by kind:
//
//	if errors.Is(err, netcdf.ErrVariableNotFound) { ... }
//
// # Concurrency
//
// A File may be shared between goroutines. Data reads move the cursor of the
// underlying storage, so they hold the file's lock for their whole duration
// and are served one at a time.
package netcdf
