package list

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deploymenttheory/go-apfs/pkg/app"
)

func TestHandleRequiresContainerPath(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHandleFailsOnMissingContainer(t *testing.T) {
	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{
		ContainerPath: "/this/path/definitely/does/not/exist.dmg",
		Volumes:       true,
	})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestResolveVolumeIDDefaultsToFirst(t *testing.T) {
	info := servicesContainerInfoStub()
	id, err := resolveVolumeID(info, app.VolumeTarget{})
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestResolveVolumeIDByName(t *testing.T) {
	info := servicesContainerInfoStub()
	id, err := resolveVolumeID(info, app.VolumeTarget{VolumeName: "Data"})
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestResolveVolumeIDUnknownName(t *testing.T) {
	info := servicesContainerInfoStub()
	_, err := resolveVolumeID(info, app.VolumeTarget{VolumeName: "Nope"})
	assert.Error(t, err)
}
