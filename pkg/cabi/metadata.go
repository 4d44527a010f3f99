package cabi

/*
#include "cabi.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/plugin"
)

var (
	descriptorOnce sync.Once
	descriptor     *C.wpe_service_metadata
)

// Export publishes meta as the module's descriptor. Call it from an init
// function of the plugin's main package. Failures are logged rather than
// raised, since they would surface while the host is loading the module.
func Export(meta *plugin.ServiceMetadata) {
	if err := plugin.Publish(meta); err != nil {
		logger.Error("cannot publish service metadata", "error", err)
		return
	}
	if err := boundary.CheckForeign("name", meta.Name); err != nil {
		logger.Warn("plugin name will be truncated for the host", "error", err)
	}
}

//export thunder_service_metadata
func thunder_service_metadata() *C.wpe_service_metadata {
	defer guard("service_metadata")
	meta, ok := plugin.Published()
	if !ok {
		return nil
	}
	descriptorOnce.Do(func() {
		d := (*C.wpe_service_metadata)(C.calloc(1, C.size_t(unsafe.Sizeof(C.wpe_service_metadata{}))))
		d.name = C.CString(meta.Name)
		d.major = C.uint32_t(meta.Version.Major)
		d.minor = C.uint32_t(meta.Version.Minor)
		d.patch = C.uint32_t(meta.Version.Patch)
		descriptor = d
	})
	return descriptor
}
