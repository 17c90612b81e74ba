package remote

import (
	"context"
	"fmt"
	"path"
)

// InstallPackage installs an apt package on the current host.
func InstallPackage(ctx context.Context, pkg string) error {
	if err := Execute(ctx, "sudo", "apt-get", "update"); err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	if err := Execute(ctx, "sudo", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", pkg); err != nil {
		return fmt.Errorf("failed to install %s: %w", pkg, err)
	}
	return nil
}

// UninstallPackage removes an apt package and its unused dependencies.
func UninstallPackage(ctx context.Context, pkg string) error {
	if err := Execute(ctx, "sudo", "apt-get", "remove", "-y", pkg); err != nil {
		return fmt.Errorf("failed to remove %s: %w", pkg, err)
	}
	if err := Execute(ctx, "sudo", "apt-get", "autoremove", "-y"); err != nil {
		return fmt.Errorf("failed to autoremove after %s: %w", pkg, err)
	}
	return nil
}

// UploadFile places content at dest with the given owner and mode. The
// upload lands in /tmp first because dest is usually root-owned.
func UploadFile(ctx context.Context, content []byte, dest, owner, mode string) error {
	tmp := path.Join("/tmp", path.Base(dest))

	if err := Upload(ctx, content, tmp); err != nil {
		return err
	}
	steps := [][]string{
		{"sudo", "mv", tmp, dest},
		{"sudo", "chown", owner, dest},
		{"sudo", "chmod", mode, dest},
	}
	for _, args := range steps {
		if err := Execute(ctx, args...); err != nil {
			return fmt.Errorf("failed to place %s: %w", dest, err)
		}
	}
	return nil
}
