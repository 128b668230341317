package services

import (
	"context"
	"testing"
	"time"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func TestServiceFactory(t *testing.T) {
	factory := NewServiceFactory()

	// Test initialization
	err := factory.Initialize()
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	if !factory.IsInitialized() {
		t.Error("Factory should be initialized")
	}

	// Test getting container service
	containerSvc, err := factory.ContainerService()
	if err != nil {
		t.Fatalf("Failed to get container service: %v", err)
	}
	if containerSvc == nil {
		t.Error("Container service should not be nil")
	}

	// Test getting filesystem service
	filesystemSvc, err := factory.FilesystemService()
	if err != nil {
		t.Fatalf("Failed to get filesystem service: %v", err)
	}
	if filesystemSvc == nil {
		t.Error("Filesystem service should not be nil")
	}

	// Volume and extraction services are implemented now
	volumeSvc, err := factory.VolumeService()
	if err != nil {
		t.Fatalf("Failed to get volume service: %v", err)
	}
	if volumeSvc == nil {
		t.Error("Volume service should not be nil")
	}

	extractionSvc, err := factory.ExtractionService()
	if err != nil {
		t.Fatalf("Failed to get extraction service: %v", err)
	}
	if extractionSvc == nil {
		t.Error("Extraction service should not be nil")
	}

	// Test shutdown
	err = factory.Shutdown()
	if err != nil {
		t.Fatalf("Failed to shutdown services: %v", err)
	}

	if factory.IsInitialized() {
		t.Error("Factory should not be initialized after shutdown")
	}
}

func TestContainerService(t *testing.T) {
	svc := NewContainerService()
	ctx := context.Background()

	// Test discovery (should not fail even if no containers found)
	containers, err := svc.DiscoverContainers(ctx)
	if err != nil {
		t.Fatalf("DiscoverContainers should not fail: %v", err)
	}

	// Should return empty slice if no containers found
	if containers == nil {
		t.Error("DiscoverContainers should return empty slice, not nil")
	}

	// Test closing (should not fail even with no open containers)
	err = svc.Close()
	if err != nil {
		t.Fatalf("Close should not fail: %v", err)
	}
}

func TestFilesystemService(t *testing.T) {
	containerSvc := NewContainerService()
	svc := NewFilesystemService(containerSvc)
	ctx := context.Background()

	// These paths don't correspond to real containers, so every call
	// should fail at OpenContainer rather than panic.
	_, err := svc.ListDirectory(ctx, "/nonexistent", 1, "/", false)
	if err == nil {
		t.Error("Expected error for nonexistent container")
	}

	_, err = svc.GetFileInfo(ctx, "/nonexistent", 1, "/test")
	if err == nil {
		t.Error("Expected error for nonexistent container")
	}

	_, err = svc.CheckAccess(ctx, "/nonexistent", 1, "/test")
	if err == nil {
		t.Error("Expected error for nonexistent container")
	}
}

func TestFilesystemServiceRequiresVolumeOpener(t *testing.T) {
	// A ContainerService that doesn't implement volumeOpener should
	// produce a clear error rather than a panic or type-assertion crash.
	svc := NewFilesystemService(&stubContainerService{})
	ctx := context.Background()

	_, err := svc.ListDirectory(ctx, "/anything", 0, "/", false)
	if err == nil {
		t.Error("Expected error when container service can't open volumes")
	}
}

// stubContainerService implements ContainerService without volumeOpener.
type stubContainerService struct{}

func (s *stubContainerService) DiscoverContainers(ctx context.Context) ([]ContainerInfo, error) {
	return nil, nil
}
func (s *stubContainerService) OpenContainer(ctx context.Context, devicePath string) (ContainerInfo, error) {
	return ContainerInfo{}, nil
}
func (s *stubContainerService) ReadSuperblock(ctx context.Context, devicePath string) (*types.NxSuperblockT, error) {
	return nil, nil
}
func (s *stubContainerService) ListVolumes(ctx context.Context, devicePath string) ([]VolumeInfo, error) {
	return nil, nil
}
func (s *stubContainerService) GetSpaceManagerInfo(ctx context.Context, devicePath string) (SpaceManagerInfo, error) {
	return SpaceManagerInfo{}, nil
}
func (s *stubContainerService) VerifyCheckpoints(ctx context.Context, devicePath string) error {
	return nil
}
func (s *stubContainerService) Close() error { return nil }

func TestDefaultServiceFactory(t *testing.T) {
	// Test convenience functions
	_, err := GetContainerService()
	if err != nil {
		t.Fatalf("Failed to get default container service: %v", err)
	}

	_, err = GetFilesystemService()
	if err != nil {
		t.Fatalf("Failed to get default filesystem service: %v", err)
	}

	_, err = GetVolumeService()
	if err != nil {
		t.Fatalf("Failed to get default volume service: %v", err)
	}

	_, err = GetExtractionService()
	if err != nil {
		t.Fatalf("Failed to get default extraction service: %v", err)
	}

	// Test service info
	services := DefaultServiceFactory.ListAvailableServices()
	if len(services) == 0 {
		t.Error("Should have some available services")
	}

	availableCount := 0
	for _, service := range services {
		if service.Available {
			availableCount++
		}
	}

	if availableCount != len(services) {
		t.Error("All listed services should be available")
	}

	// Test getting all services
	allServices, err := DefaultServiceFactory.GetAllServices()
	if err != nil {
		t.Fatalf("Failed to get all services: %v", err)
	}

	if len(allServices) != 4 {
		t.Errorf("Expected 4 services, got %d", len(allServices))
	}

	// Clean up
	err = ShutdownServices()
	if err != nil {
		t.Fatalf("Failed to shutdown services: %v", err)
	}
}

func TestContainerServiceLimitations(t *testing.T) {
	// Test that the service behaves appropriately with invalid inputs
	svc := NewContainerService()
	ctx := context.Background()

	// Test timeout context
	timeoutCtx, cancel := context.WithTimeout(ctx, 1*time.Millisecond)
	defer cancel()

	// Give the context time to timeout
	time.Sleep(2 * time.Millisecond)

	_, err := svc.DiscoverContainers(timeoutCtx)
	if err != context.DeadlineExceeded {
		t.Log("Note: DiscoverContainers may complete before timeout in test environment")
	}

	// Test with invalid paths
	_, err = svc.OpenContainer(ctx, "/this/path/definitely/does/not/exist")
	if err == nil {
		t.Error("Expected error for nonexistent path")
	}

	// Test reading superblock on nonexistent container
	_, err = svc.ReadSuperblock(ctx, "/this/path/definitely/does/not/exist")
	if err == nil {
		t.Error("Expected error for nonexistent path")
	}
}

// Benchmark tests to ensure services perform adequately
func BenchmarkContainerServiceDiscovery(b *testing.B) {
	svc := NewContainerService()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.DiscoverContainers(ctx)
	}
}

func BenchmarkServiceFactoryInitialization(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		factory := NewServiceFactory()
		_ = factory.Initialize()
		_ = factory.Shutdown()
	}
}
