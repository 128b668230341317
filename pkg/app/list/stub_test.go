package list

import "github.com/deploymenttheory/go-apfs/pkg/services"

func servicesContainerInfoStub() services.ContainerInfo {
	return services.ContainerInfo{
		Volumes: []services.VolumeInfo{
			{ObjectID: 1, Name: "Macintosh HD"},
			{ObjectID: 2, Name: "Data"},
		},
	}
}
