package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/services"
)

func TestHandleRequiresContainerPath(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{DestPath: "/tmp/out"})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHandleRequiresDestPath(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{ContainerPath: "/test/container.dmg"})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHandleFailsOnMissingContainer(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{
		ContainerPath: "/this/path/definitely/does/not/exist.dmg",
		DestPath:      "/tmp/out",
	})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestResolveVolumeIDByID(t *testing.T) {
	info := services.ContainerInfo{Volumes: []services.VolumeInfo{{ObjectID: 1, Name: "Macintosh HD"}}}
	id, err := resolveVolumeID(info, app.VolumeTarget{VolumeID: 7})
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestResolveVolumeIDNoVolumes(t *testing.T) {
	_, err := resolveVolumeID(services.ContainerInfo{}, app.VolumeTarget{})
	assert.Error(t, err)
}
