package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
 * ============================================================================
 * 对象编码 - RDB 键值对格式的独立封装
 * ============================================================================
 *
 * persistence/rdb.go 里的 writeKeyValue/readValue 把"类型字节 + 长度前缀字段"
 * 的编码和磁盘文件格式（REDIS 魔数、SELECTDB、EOF 操作码）混在一起。迁移子系统
 * 的快照/增量流只需要"单个对象 <-> 字节"这一半，不需要整份 RDB 文件的外壳，
 * 所以把编码部分拆出来放在这里，rdb.go 和 migration 的 storage 适配器共用。
 */

// EncodeObject serializes obj's value using the same type-tagged,
// length-prefixed layout persistence/rdb.go writes into RDB files, without
// the surrounding file header/opcodes. The returned bytes are the payload
// migration.SnapshotItem.Value carries across a SyncChannel.
func EncodeObject(obj *RedisObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(obj.Type))

	switch obj.Type {
	case OBJ_STRING:
		val, err := obj.GetStringValue()
		if err != nil {
			return nil, err
		}
		writeCodecString(&buf, string(val))

	case OBJ_LIST:
		list, err := obj.GetList()
		if err != nil {
			return nil, err
		}
		values, _ := list.Range(0, -1)
		writeCodecLength(&buf, uint32(len(values)))
		for _, v := range values {
			writeCodecString(&buf, string(v))
		}

	case OBJ_SET:
		set, err := obj.GetSet()
		if err != nil {
			return nil, err
		}
		members := set.Members()
		writeCodecLength(&buf, uint32(len(members)))
		for _, m := range members {
			writeCodecString(&buf, string(m))
		}

	case OBJ_ZSET:
		zset, err := obj.GetZSet()
		if err != nil {
			return nil, err
		}
		entries, _ := zset.Range(0, -1, false)
		writeCodecLength(&buf, uint32(len(entries)))
		for _, e := range entries {
			writeCodecString(&buf, string(e.Member()))
			binary.Write(&buf, binary.LittleEndian, e.Score())
		}

	case OBJ_HASH:
		hash, err := obj.GetHash()
		if err != nil {
			return nil, err
		}
		entries := hash.GetAll()
		writeCodecLength(&buf, uint32(len(entries)))
		for _, e := range entries {
			writeCodecString(&buf, string(e.Field()))
			writeCodecString(&buf, string(e.Value()))
		}

	default:
		return nil, fmt.Errorf("storage: encode object: unknown type %d", obj.Type)
	}

	return buf.Bytes(), nil
}

// DecodeObject reconstructs a *RedisObject from bytes produced by
// EncodeObject. The encoding byte at the front of data carries the object
// type, so callers don't need to track it out of band.
func DecodeObject(data []byte) (*RedisObject, error) {
	r := bytes.NewReader(data)
	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	objType := ObjectType(typeByte)

	switch objType {
	case OBJ_STRING:
		val, err := readCodecString(r)
		if err != nil {
			return nil, err
		}
		return NewStringObject([]byte(val)), nil

	case OBJ_LIST:
		n, err := readCodecLength(r)
		if err != nil {
			return nil, err
		}
		obj := NewListObject()
		list, _ := obj.GetList()
		for i := uint32(0); i < n; i++ {
			val, err := readCodecString(r)
			if err != nil {
				return nil, err
			}
			list.Push([]byte(val), 1)
		}
		return obj, nil

	case OBJ_SET:
		n, err := readCodecLength(r)
		if err != nil {
			return nil, err
		}
		obj := NewSetObject()
		set, _ := obj.GetSet()
		for i := uint32(0); i < n; i++ {
			m, err := readCodecString(r)
			if err != nil {
				return nil, err
			}
			set.Add([]byte(m))
		}
		return obj, nil

	case OBJ_ZSET:
		n, err := readCodecLength(r)
		if err != nil {
			return nil, err
		}
		obj := NewZSetObject()
		zset, _ := obj.GetZSet()
		for i := uint32(0); i < n; i++ {
			m, err := readCodecString(r)
			if err != nil {
				return nil, err
			}
			var score float64
			if err := binary.Read(r, binary.LittleEndian, &score); err != nil {
				return nil, err
			}
			zset.Add([]byte(m), score)
		}
		return obj, nil

	case OBJ_HASH:
		n, err := readCodecLength(r)
		if err != nil {
			return nil, err
		}
		obj := NewHashObject()
		hash, _ := obj.GetHash()
		for i := uint32(0); i < n; i++ {
			field, err := readCodecString(r)
			if err != nil {
				return nil, err
			}
			value, err := readCodecString(r)
			if err != nil {
				return nil, err
			}
			hash.Set([]byte(field), []byte(value))
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("storage: decode object: unknown type %d", objType)
	}
}

func writeCodecLength(buf *bytes.Buffer, n uint32) {
	if n < 254 {
		buf.WriteByte(byte(n))
	} else if n <= 0xFFFF {
		buf.WriteByte(254)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	} else {
		buf.WriteByte(255)
		binary.Write(buf, binary.LittleEndian, n)
	}
}

func writeCodecString(buf *bytes.Buffer, s string) {
	writeCodecLength(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readCodecLength(r *bytes.Reader) (uint32, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b < 254 {
		return uint32(b), nil
	}
	if b == 254 {
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return uint32(v), err
	}
	var v uint32
	err = binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readCodecString(r *bytes.Reader) (string, error) {
	n, err := readCodecLength(r)
	if err != nil {
		return "", err
	}
	data := make([]byte, n)
	if _, err := r.Read(data); err != nil {
		return "", err
	}
	return string(data), nil
}
