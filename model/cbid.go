package model

import "strconv"

// runtimeCbidName maps a CUDA runtime callback id to its canonical
// API name. Unmapped ids are not an error — RuntimeCallName falls back
// to the numeric id string, so an unknown id is purely a reporting
// concern, not a Go error.
var runtimeCbidName = map[int]string{
	3:   "cudaGetDeviceCount",
	4:   "cudaGetDeviceProperties",
	10:  "cudaGetLastError",
	16:  "cudaSetDevice",
	17:  "cudaGetDevice",
	20:  "cudaMalloc",
	22:  "cudaFree",
	27:  "cudaHostAlloc",
	28:  "cudaHostGetDevicePointer",
	31:  "cudaMemcpy",
	41:  "cudaMemcpyAsync",
	51:  "cudaMemsetAsync",
	55:  "cudaBindTexture",
	58:  "cudaUnbindTexture",
	129: "cudaStreamCreate",
	131: "cudaStreamSynchronize",
	133: "cudaEventCreate",
	134: "cudaEventCreateWithFlags",
	135: "cudaEventRecord",
	136: "cudaEventDestroy",
	137: "cudaEventSynchronize",
	147: "cudaStreamWaitEvent",
	152: "cudaHostRegister",
	153: "cudaHostUnregister",
	165: "cudaDeviceSynchronize",
	197: "cudaStreamAddCallback",
	198: "cudaStreamCreateWithFlags",
	200: "cudaDeviceGetAttribute",
	202: "cudaStreamCreateWithPriority",
	205: "cudaDeviceGetStreamPriorityRange",
	211: "cudaLaunchKernel",
	273: "cudaFuncSetAttribute",
}

// syncCallbacks holds the cbids that block the host waiting on device
// work. The analysis driver skips them when updating runtime timelines
// so synchronization isn't double-counted as host-side overhead.
var syncCallbacks = map[int]bool{
	131: true, // cudaStreamSynchronize
	137: true, // cudaEventSynchronize
	165: true, // cudaDeviceSynchronize
}

// RuntimeCallName returns the canonical name of a runtime callback id,
// or its decimal string if the id isn't in the table.
func RuntimeCallName(cbid int) string {
	if name, ok := runtimeCbidName[cbid]; ok {
		return name
	}
	return strconv.Itoa(cbid)
}

// IsSyncCallback reports whether cbid identifies a host-blocking
// synchronization primitive (event/stream/device synchronize).
func IsSyncCallback(cbid int) bool {
	return syncCallbacks[cbid]
}
