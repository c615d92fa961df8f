package store

import "os"

func removeIfExists(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func removeAllIfExists(path string) error {
	return os.RemoveAll(path)
}
